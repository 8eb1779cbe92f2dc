package corpus

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/FocuswithJustin/verbum/core/errors"
	"github.com/FocuswithJustin/verbum/core/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS books (
	position INTEGER PRIMARY KEY,
	name     TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS verses (
	book    INTEGER NOT NULL REFERENCES books(position),
	chapter INTEGER NOT NULL,
	verse   INTEGER NOT NULL,
	text    TEXT NOT NULL,
	PRIMARY KEY (book, chapter, verse)
);`

// SaveSQLite writes c into a new SQLite database at path. An existing file
// is refused so an import never silently merges two datasets. A failed
// import removes what it created, so the same command can be rerun.
func SaveSQLite(ctx context.Context, c *Corpus, path string) error {
	if _, err := os.Stat(path); err == nil {
		return errors.NewValidation("out", fmt.Sprintf("%s already exists", path))
	}

	db, err := sqlite.Open(path)
	if err != nil {
		removeSQLite(path)
		return errors.NewIO("open", path, err)
	}

	err = writeSQLite(ctx, db, c)
	if cerr := db.Close(); err == nil && cerr != nil {
		err = errors.NewIO("close", path, cerr)
	}
	if err != nil {
		removeSQLite(path)
		return err
	}
	return nil
}

// removeSQLite deletes a database file and its journal side files.
func removeSQLite(path string) {
	for _, p := range []string{path, path + "-journal", path + "-wal", path + "-shm"} {
		_ = os.Remove(p)
	}
}

func writeSQLite(ctx context.Context, db *sql.DB, c *Corpus) error {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return errors.Wrap(err, "creating schema")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "starting transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES ('title', ?)`, c.title); err != nil {
		return errors.Wrap(err, "writing metadata")
	}

	bookStmt, err := tx.PrepareContext(ctx, `INSERT INTO books (position, name) VALUES (?, ?)`)
	if err != nil {
		return errors.Wrap(err, "preparing book insert")
	}
	defer bookStmt.Close()

	verseStmt, err := tx.PrepareContext(ctx, `INSERT INTO verses (book, chapter, verse, text) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "preparing verse insert")
	}
	defer verseStmt.Close()

	for i, b := range c.books {
		if _, err := bookStmt.ExecContext(ctx, i+1, b.Name); err != nil {
			return errors.Wrapf(err, "writing book %s", b.Name)
		}
		for ch, verses := range b.Chapters {
			for v, text := range verses {
				if _, err := verseStmt.ExecContext(ctx, i+1, ch+1, v+1, text); err != nil {
					return errors.Wrapf(err, "writing %s %d:%d", b.Name, ch+1, v+1)
				}
			}
		}
	}

	return tx.Commit()
}

// LoadSQLite reads a database written by SaveSQLite.
func LoadSQLite(ctx context.Context, path string) (*Corpus, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, &errors.NotFoundError{Resource: "dataset", ID: path, Err: err}
		}
		return nil, errors.NewIO("stat", path, err)
	}

	db, err := sqlite.OpenReadOnly(ctx, path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	defer db.Close()

	var title string
	err = db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'title'`).Scan(&title)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, &errors.ParseError{Format: "SQLite", Path: path, Message: "missing meta table", Err: err}
	}

	books, err := readSQLiteBooks(ctx, db)
	if err != nil {
		return nil, &errors.ParseError{Format: "SQLite", Path: path, Message: err.Error(), Err: err}
	}
	return New(title, books)
}

func readSQLiteBooks(ctx context.Context, db *sql.DB) ([]Book, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT b.name, v.chapter, v.verse, v.text
		FROM verses v JOIN books b ON b.position = v.book
		ORDER BY b.position, v.chapter, v.verse`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []Book
	for rows.Next() {
		var (
			name           string
			chapter, verse int
			text           string
		)
		if err := rows.Scan(&name, &chapter, &verse, &text); err != nil {
			return nil, err
		}

		if len(books) == 0 || books[len(books)-1].Name != name {
			books = append(books, Book{Name: name})
		}
		b := &books[len(books)-1]

		if chapter == len(b.Chapters)+1 && verse == 1 {
			b.Chapters = append(b.Chapters, nil)
		}
		if chapter < 1 || chapter != len(b.Chapters) || verse != len(b.Chapters[chapter-1])+1 {
			return nil, fmt.Errorf("%s %d:%d breaks contiguous numbering", name, chapter, verse)
		}
		b.Chapters[chapter-1] = append(b.Chapters[chapter-1], text)
	}
	return books, rows.Err()
}
