// internal/service/quiz.go
package service

// QuizPassScore is the fixed pass cutoff: 3 of 5 correct.
const QuizPassScore = 3

// QuizQuestion is one awareness quiz question. The correct answer stays
// server-side; grading never trusts client-reported scores.
type QuizQuestion struct {
	ID      string            `json:"id"`
	Text    string            `json:"text"`
	Options map[string]string `json:"options"`
	correct string
}

var quizBank = []QuizQuestion{
	{
		ID:   "q1",
		Text: "You receive an email saying your password will expire in 30 minutes and you must click a link to keep your account active. What is the safest first step?",
		Options: map[string]string{
			"a": "Click the link immediately and enter your password",
			"b": "Forward the email to all colleagues to warn them",
			"c": "Verify the request through the official IT portal or helpdesk",
			"d": "Reply to the email and send your current password",
		},
		correct: "c",
	},
	{
		ID:   "q2",
		Text: "Which of these is the BEST sign that an email might be phishing?",
		Options: map[string]string{
			"a": "The email uses your name correctly",
			"b": "The sender's address is slightly misspelled compared to the real company",
			"c": "The email includes the company logo",
			"d": "The email is sent during normal working hours",
		},
		correct: "b",
	},
	{
		ID:   "q3",
		Text: "A link in an email looks legitimate, but hovering over it shows a completely different website. What should you do?",
		Options: map[string]string{
			"a": "Click it only if you are at home",
			"b": "Click it but avoid typing your password",
			"c": "Do not click the link and report the email to IT/security",
			"d": "Reply and ask the sender if it is safe",
		},
		correct: "c",
	},
	{
		ID:   "q4",
		Text: "You already clicked a suspicious link and entered your password. What is the BEST next action?",
		Options: map[string]string{
			"a": "Do nothing if nothing strange happened",
			"b": "Immediately change your password and inform IT/security",
			"c": "Close the browser and hope it is fine",
			"d": "Delete your browser history only",
		},
		correct: "b",
	},
	{
		ID:   "q5",
		Text: "Which of these behaviours helps keep the organization safer from phishing?",
		Options: map[string]string{
			"a": "Ignoring suspicious emails and never telling anyone",
			"b": "Using the same password everywhere so it is easy to remember",
			"c": "Reporting suspicious emails using the official reporting method",
			"d": "Clicking all links quickly to keep inbox clean",
		},
		correct: "c",
	},
}

// QuizQuestions returns the question bank without correct answers.
func QuizQuestions() []QuizQuestion {
	return quizBank
}

// QuizMaxScore is the number of questions in the bank.
func QuizMaxScore() int {
	return len(quizBank)
}

// GradeQuiz scores submitted answers (question id -> option key).
func GradeQuiz(answers map[string]string) int {
	score := 0
	for _, q := range quizBank {
		if answers[q.ID] == q.correct {
			score++
		}
	}
	return score
}
