package database

import (
	"database/sql"
	"fmt"
	"time"

	"callboard/internal/state"
)

// Repository runs the dashboard's database operations.
type Repository struct {
	conn *Connection
}

// NewRepository creates a repository over an open connection.
func NewRepository(conn *Connection) *Repository {
	return &Repository{conn: conn}
}

// GetDB returns the underlying sql.DB.
func (r *Repository) GetDB() *sql.DB {
	return r.conn.DB
}

// ListOperators lists all operators ordered by extension.
func (r *Repository) ListOperators() ([]Operator, error) {
	query := `
		SELECT id, name, extension, created_at
		FROM callboard_operators
		ORDER BY extension
	`

	rows, err := r.conn.DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("listing operators: %w", err)
	}
	defer rows.Close()

	var operators []Operator
	for rows.Next() {
		var o Operator
		if err := rows.Scan(&o.ID, &o.Name, &o.Extension, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning operator: %w", err)
		}
		operators = append(operators, o)
	}

	return operators, rows.Err()
}

// CreateOperator registers a new operator binding.
func (r *Repository) CreateOperator(o *Operator) error {
	query := `
		INSERT INTO callboard_operators (name, extension)
		VALUES (?, ?)
	`

	res, err := r.conn.DB.Exec(query, o.Name, o.Extension)
	if err != nil {
		return fmt.Errorf("creating operator: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading operator id: %w", err)
	}
	o.ID = int(id)
	return nil
}

// DeleteOperator removes an operator binding.
func (r *Repository) DeleteOperator(id int) error {
	res, err := r.conn.DB.Exec(`DELETE FROM callboard_operators WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting operator: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting operator: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("operator %d not found", id)
	}
	return nil
}

// OperatorBindings returns the operator-to-extension pairs the poller
// sweeps over.
func (r *Repository) OperatorBindings() ([]state.Binding, error) {
	query := `
		SELECT name, extension
		FROM callboard_operators
		ORDER BY extension
	`

	rows, err := r.conn.DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("listing bindings: %w", err)
	}
	defer rows.Close()

	var bindings []state.Binding
	for rows.Next() {
		var b state.Binding
		if err := rows.Scan(&b.Operator, &b.Extension); err != nil {
			return nil, fmt.Errorf("scanning binding: %w", err)
		}
		bindings = append(bindings, b)
	}

	return bindings, rows.Err()
}

// GetUserByUsername fetches a dashboard account for login.
func (r *Repository) GetUserByUsername(username string) (*User, error) {
	query := `
		SELECT id, username, password_hash, role, full_name
		FROM callboard_users
		WHERE username = ?
	`

	var u User
	err := r.conn.DB.QueryRow(query, username).Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.FullName,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %s not found", username)
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	return &u, nil
}

// CreateUser inserts a dashboard account. PasswordHash must already be
// a bcrypt hash.
func (r *Repository) CreateUser(u *User) error {
	query := `
		INSERT INTO callboard_users (username, password_hash, role, full_name)
		VALUES (?, ?, ?, ?)
	`

	res, err := r.conn.DB.Exec(query, u.Username, u.PasswordHash, u.Role, u.FullName)
	if err != nil {
		return fmt.Errorf("creating user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading user id: %w", err)
	}
	u.ID = int(id)
	return nil
}

// ListUsers lists dashboard accounts without their hashes.
func (r *Repository) ListUsers() ([]User, error) {
	query := `
		SELECT id, username, role, full_name
		FROM callboard_users
		ORDER BY username
	`

	rows, err := r.conn.DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Role, &u.FullName); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

const callColumns = `calldate, src, dst, dcontext, channel, dstchannel,
       duration, billsec, disposition, uniqueid, linkedid`

// RecentCalls returns CDR rows within [from, to], newest first.
func (r *Repository) RecentCalls(limit int, from, to time.Time) ([]Call, error) {
	query := `
		SELECT ` + callColumns + `
		FROM cdr
		WHERE calldate BETWEEN ? AND ?
		ORDER BY calldate DESC
		LIMIT ?
	`

	rows, err := r.conn.DB.Query(query, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("querying calls: %w", err)
	}
	defer rows.Close()

	return scanCalls(rows)
}

// CallsByOperator returns CDR rows where the extension appears as either
// leg of the call, newest first.
func (r *Repository) CallsByOperator(extension string, limit int, from, to time.Time) ([]Call, error) {
	query := `
		SELECT ` + callColumns + `
		FROM cdr
		WHERE calldate BETWEEN ? AND ?
		  AND (src = ? OR dst = ?)
		ORDER BY calldate DESC
		LIMIT ?
	`

	rows, err := r.conn.DB.Query(query, from, to, extension, extension, limit)
	if err != nil {
		return nil, fmt.Errorf("querying operator calls: %w", err)
	}
	defer rows.Close()

	return scanCalls(rows)
}

func scanCalls(rows *sql.Rows) ([]Call, error) {
	var calls []Call
	for rows.Next() {
		var c Call
		err := rows.Scan(
			&c.CallDate, &c.Src, &c.Dst, &c.DContext, &c.Channel,
			&c.DstChannel, &c.Duration, &c.Billsec, &c.Disposition,
			&c.UniqueID, &c.LinkedID,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning call: %w", err)
		}
		calls = append(calls, c)
	}
	return calls, rows.Err()
}
