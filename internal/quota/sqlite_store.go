package quota

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore 基于 SQLite 的账本，每次保存在单个事务内整体替换
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore 打开（必要时创建）账本数据库
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS quota_records (
			position INTEGER NOT NULL,
			api_key TEXT PRIMARY KEY,
			usage TEXT NOT NULL,
			last_used_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to migrate ledger db: %w", err)
		}
	}
	return nil
}

// Load 读取全部记录，按写入顺序返回
func (s *SQLiteStore) Load() ([]Record, error) {
	rows, err := s.db.Query("SELECT api_key, usage, last_used_at FROM quota_records ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var key, usageText, ts string
		if err := rows.Scan(&key, &usageText, &ts); err != nil {
			return nil, err
		}

		usage, err := ParseUsage(usageText)
		if err != nil {
			return nil, fmt.Errorf("ledger record %s: %w", key, err)
		}
		records = append(records, Record{Key: key, Usage: usage, LastUsedAt: parseLastUsed(key, ts)})
	}

	return records, rows.Err()
}

// Save 事务内删除旧记录并写入全部新记录
func (s *SQLiteStore) Save(records []Record) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM quota_records"); err != nil {
		return fmt.Errorf("failed to clear ledger: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO quota_records (position, api_key, usage, last_used_at) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.Exec(i, r.Key, r.Usage.String(), FormatTimestamp(r.LastUsedAt)); err != nil {
			return fmt.Errorf("failed to write ledger record %s: %w", r.Key, err)
		}
	}

	return tx.Commit()
}

// Close 关闭数据库
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
