package repository

import (
	"database/sql"

	"github.com/phishguard/phishguard-backend/internal/model"
)

// UserRepositoryInterface defines the directory reads the core needs; user
// and department management screens live elsewhere.
type UserRepositoryInterface interface {
	ListEmployees() ([]model.User, error)
	ListDepartments() ([]model.Department, error)
	EmployeeIDsByDepartment(departmentID int) ([]int, error)
}

type UserRepository struct {
	DB *sql.DB
}

func (r *UserRepository) ListEmployees() ([]model.User, error) {
	query := `
        SELECT u.user_id, u.name, u.email, u.role, u.department_id, COALESCE(d.name, '')
        FROM users u
        LEFT JOIN departments d ON u.department_id = d.department_id
        WHERE u.role = 'employee'
        ORDER BY u.name
    `
	rows, err := r.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.DepartmentID, &u.Department); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) ListDepartments() ([]model.Department, error) {
	rows, err := r.DB.Query(`SELECT department_id, name FROM departments ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	departments := []model.Department{}
	for rows.Next() {
		var d model.Department
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, err
		}
		departments = append(departments, d)
	}
	return departments, rows.Err()
}

func (r *UserRepository) EmployeeIDsByDepartment(departmentID int) ([]int, error) {
	query := `
        SELECT user_id FROM users
        WHERE department_id = $1 AND role = 'employee'
    `
	rows, err := r.DB.Query(query, departmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

var _ UserRepositoryInterface = (*UserRepository)(nil)
