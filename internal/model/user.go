// internal/model/user.go
package model

type User struct {
	ID           int    `db:"user_id" json:"id"`
	Name         string `db:"name" json:"name"`
	Email        string `db:"email" json:"email"`
	Role         string `db:"role" json:"role"`
	DepartmentID *int   `db:"department_id" json:"department_id,omitempty"`
	Department   string `db:"department" json:"department,omitempty"`
}

type Department struct {
	ID   int    `db:"department_id" json:"id"`
	Name string `db:"name" json:"name"`
}
