package mosaic

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"time"

	"crawshaw.io/sqlite"
	"crawshaw.io/sqlite/sqlitex"
)

// The SQL schema for the app's database
//
//go:embed schema.sql
var schemaSQL string

// DB is the pool every command shares. Functions below take a *sqlite.Conn rather than
// the pool, so callers decide how long they hold a connection.
type DB struct {
	*sqlitex.Pool
}

func setUpDb(conn *sqlite.Conn) error {
	return sqlitex.ExecScript(conn, schemaSQL)
}

func NewDB(dbpool *sqlitex.Pool) (*DB, error) {
	conn := dbpool.Get(context.TODO())
	if conn == nil {
		return nil, errors.New("couldn't get a connection")
	}
	defer dbpool.Put(conn)

	err := setUpDb(conn)
	if err != nil {
		return nil, fmt.Errorf("couldn't set up db: %w", err)
	}

	return &DB{dbpool}, nil
}

// OpenDB opens (and creates, if needed) the SQLite database at uri.
func OpenDB(uri string, poolSize int) (*DB, error) {
	dbpool, err := sqlitex.Open(uri, 0, poolSize)
	if err != nil {
		return nil, err
	}
	db, err := NewDB(dbpool)
	if err != nil {
		dbpool.Close()
		return nil, err
	}
	return db, nil
}

type User struct {
	// I use int64s because that's what SQLite returns under the hood. But it would be
	// fine to use plain int, surely
	UserID         int64
	Name           string
	AvatarUploadID int64 // zero if the user doesn't have an avatar yet
}

func (u *User) URL() string {
	return userURL(u.Name)
}

func (u *User) AvatarURL() string {
	if u.AvatarUploadID == 0 {
		return ""
	}
	return fmt.Sprintf("/uploads/%d.png", u.AvatarUploadID)
}

func userURL(userName string) string {
	return fmt.Sprintf("/u/%s/", url.PathEscape(userName))
}

type Upload struct {
	UploadID    int64
	Filename    string
	ContentType string
	Contents    []byte
	CreatedAt   time.Time
}

func utcNow() time.Time {
	return time.Now().UTC()
}

func CreateUser(conn *sqlite.Conn, name string) (*User, error) {
	query := "insert into user (name, created_at) values (?, ?)"
	err := sqlitex.Exec(conn, query, nil, name, utcNow().Unix())
	if err != nil {
		return nil, err
	}
	return &User{UserID: conn.LastInsertRowID(), Name: name}, nil
}

func collectUser(stmt *sqlite.Stmt) User {
	return User{
		UserID:         stmt.ColumnInt64(0),
		Name:           stmt.ColumnText(1),
		AvatarUploadID: stmt.ColumnInt64(2),
	}
}

// GetUserByName returns nil (and no error) if there's no such user.
func GetUserByName(conn *sqlite.Conn, name string) (*User, error) {
	var user *User
	query := "select user_id, name, avatar_upload_id from user where name = ? limit 1"
	collect := func(stmt *sqlite.Stmt) error {
		u := collectUser(stmt)
		user = &u
		return nil
	}
	err := sqlitex.Exec(conn, query, collect, name)
	return user, err
}

func ListUsersWithoutAvatar(conn *sqlite.Conn) ([]User, error) {
	query := `
		select user_id, name, avatar_upload_id
		from user
		where avatar_upload_id is null
		order by user_id`
	users := make([]User, 0)
	collect := func(stmt *sqlite.Stmt) error {
		users = append(users, collectUser(stmt))
		return nil
	}
	err := sqlitex.Exec(conn, query, collect)
	return users, err
}

func SaveUpload(conn *sqlite.Conn, filename string, contentType string, contents []byte) (int64, error) {
	query := `
		insert into upload (filename, content_type, contents, created_at)
		values (?, ?, ?, ?)`
	err := sqlitex.Exec(conn, query, nil, filename, contentType, contents, utcNow().Unix())
	if err != nil {
		return 0, err
	}
	return conn.LastInsertRowID(), nil
}

// GetUpload returns nil (and no error) if there's no such upload.
func GetUpload(conn *sqlite.Conn, uploadID int64) (*Upload, error) {
	query := `
		select upload_id, filename, content_type, contents, created_at
		from upload
		where upload_id = ?`
	var upload *Upload
	collect := func(stmt *sqlite.Stmt) error {
		contents := make([]byte, stmt.ColumnLen(3))
		stmt.ColumnBytes(3, contents)
		upload = &Upload{
			UploadID:    stmt.ColumnInt64(0),
			Filename:    stmt.ColumnText(1),
			ContentType: stmt.ColumnText(2),
			Contents:    contents,
			CreatedAt:   time.Unix(stmt.ColumnInt64(4), 0).UTC(),
		}
		return nil
	}
	err := sqlitex.Exec(conn, query, collect, uploadID)
	return upload, err
}

func SetUserAvatar(conn *sqlite.Conn, userID int64, uploadID int64) error {
	query := "update user set avatar_upload_id = ? where user_id = ?"
	err := sqlitex.Exec(conn, query, nil, uploadID, userID)
	if err != nil {
		return err
	}
	if conn.Changes() != 1 {
		return fmt.Errorf("no user with ID %d", userID)
	}
	return nil
}
