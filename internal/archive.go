package internal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Archive keeps a local copy of sessions in SQLite so transcripts survive
// the process and can be exported later
type Archive struct {
	db   *sql.DB
	path string
}

// OpenArchive opens or creates the archive at path
func OpenArchive(path string) (*Archive, error) {
	db, err := OpenDatabase(path)
	if err != nil {
		return nil, &ArchiveError{Path: path, Op: "open", Err: err}
	}
	return &Archive{db: db, path: path}, nil
}

// NewArchive wraps an already opened database, applying the schema
func NewArchive(db *sql.DB) (*Archive, error) {
	if err := migrate(db); err != nil {
		return nil, &ArchiveError{Op: "migrate", Err: err}
	}
	return &Archive{db: db}, nil
}

// Path returns the database path the archive was opened from
func (a *Archive) Path() string {
	return a.path
}

// Close closes the underlying database
func (a *Archive) Close() error {
	return a.db.Close()
}

// SaveSession replaces the stored copy of a session in one transaction
func (a *Archive) SaveSession(session *Session) error {
	if err := a.saveSession(session); err != nil {
		return &ArchiveError{Path: a.path, Op: "save", Err: err}
	}
	return nil
}

func (a *Archive) saveSession(session *Session) (err error) {
	tx, err := a.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.Exec(
		`INSERT INTO sessions (id, name, named, user_id, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, named = excluded.named,
		 user_id = excluded.user_id, created_at = excluded.created_at`,
		session.ID, session.Name, boolToInt(session.named), session.UserID, session.CreatedAt.UnixMilli(),
	); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	if _, err = tx.Exec(`DELETE FROM messages WHERE session_id = ?`, session.ID); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO messages (session_id, seq, sender, content, timestamp) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, msg := range session.Messages {
		if _, err = stmt.Exec(session.ID, i, msg.Sender.String(), msg.Content, msg.Timestamp.UnixMilli()); err != nil {
			return fmt.Errorf("insert message %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// DeleteSession removes a session and its messages
func (a *Archive) DeleteSession(id string) error {
	if _, err := a.db.Exec(`DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return &ArchiveError{Path: a.path, Op: "delete", Err: err}
	}
	return nil
}

// LoadSession loads a single session
func (a *Archive) LoadSession(id string) (*Session, error) {
	row := a.db.QueryRow(`SELECT id, name, named, user_id, created_at FROM sessions WHERE id = ?`, id)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &SessionNotFoundError{ID: id}
	}
	if err != nil {
		return nil, &ArchiveError{Path: a.path, Op: "load", Err: err}
	}
	if err := a.loadMessages(session); err != nil {
		return nil, &ArchiveError{Path: a.path, Op: "load", Err: err}
	}
	return session, nil
}

// LoadSessions loads every archived session, most recent first
func (a *Archive) LoadSessions() ([]*Session, error) {
	rows, err := a.db.Query(`SELECT id, name, named, user_id, created_at FROM sessions ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, &ArchiveError{Path: a.path, Op: "load", Err: err}
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, &ArchiveError{Path: a.path, Op: "load", Err: err}
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, &ArchiveError{Path: a.path, Op: "load", Err: err}
	}
	rows.Close()

	for _, session := range sessions {
		if err := a.loadMessages(session); err != nil {
			return nil, &ArchiveError{Path: a.path, Op: "load", Err: err}
		}
	}
	return sessions, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*Session, error) {
	var (
		session   Session
		named     int
		createdAt int64
	)
	if err := row.Scan(&session.ID, &session.Name, &named, &session.UserID, &createdAt); err != nil {
		return nil, err
	}
	session.named = named != 0
	session.CreatedAt = time.UnixMilli(createdAt)
	session.Messages = []Message{}
	return &session, nil
}

func (a *Archive) loadMessages(session *Session) error {
	rows, err := a.db.Query(`SELECT sender, content, timestamp FROM messages WHERE session_id = ? ORDER BY seq`, session.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			sender string
			msg    Message
			ts     int64
		)
		if err := rows.Scan(&sender, &msg.Content, &ts); err != nil {
			return err
		}
		if msg.Sender, err = ParseSender(sender); err != nil {
			return err
		}
		msg.Timestamp = time.UnixMilli(ts)
		session.Messages = append(session.Messages, msg)
	}
	return rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
