package mailer

import "go.uber.org/zap"

// Message is one rendered outbound phishing email.
type Message struct {
	FromName  string
	FromEmail string
	ToName    string
	ToEmail   string
	Subject   string
	BodyHTML  string
}

// Sender delivers a rendered message. The SMTP transport itself lives outside
// this core; dispatch only needs the contract.
type Sender interface {
	Send(msg Message) error
}

// LogSender is a transport stand-in that records sends instead of delivering
// them. Used by local runs and the seeded lab setup.
type LogSender struct {
	Logger *zap.Logger
}

func (s *LogSender) Send(msg Message) error {
	s.Logger.Info("message sent",
		zap.String("to", msg.ToEmail),
		zap.String("from", msg.FromEmail),
		zap.String("subject", msg.Subject))
	return nil
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(msg Message) error

func (f SenderFunc) Send(msg Message) error { return f(msg) }

var (
	_ Sender = (*LogSender)(nil)
	_ Sender = (SenderFunc)(nil)
)
