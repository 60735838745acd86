package sqldb

// 与MySQL交互：建表、批量插入、删表

import (
	"database/sql"
	"errors"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

var ErrNoColumns = errors.New("column can not be empty")

type DBer interface {
	CreateTable(t TableData) error
	Insert(t TableData) error
}

type Sqldb struct {
	options
	db *sql.DB
}

// 表中的一个字段
type Field struct {
	Title string
	Type  string
}

type TableData struct {
	TableName   string
	ColumnNames []Field
	Args        []interface{} // 按行展开的数据
	DataCount   int           // 行数
	AutoKey     bool
}

func New(opts ...Option) (*Sqldb, error) {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	d := &Sqldb{}
	d.options = options
	if err := d.OpenDB(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Sqldb) OpenDB() error {
	db, err := sql.Open("mysql", d.sqlURL)
	if err != nil {
		return err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(16)
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return err
	}
	d.db = db
	return nil
}

func (d *Sqldb) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

func (d *Sqldb) CreateTable(t TableData) error {
	stmt, err := CreateSQL(t)
	if err != nil {
		return err
	}
	d.logger.Debug("create table", zap.String("sql", stmt))
	_, err = d.db.Exec(stmt)
	return err
}

func (d *Sqldb) DropTable(t TableData) error {
	stmt := DropSQL(t)
	d.logger.Debug("drop table", zap.String("sql", stmt))
	_, err := d.db.Exec(stmt)
	return err
}

func (d *Sqldb) Insert(t TableData) error {
	stmt, err := InsertSQL(t)
	if err != nil {
		return err
	}
	d.logger.Debug("insert table", zap.String("sql", stmt), zap.Int("rows", t.DataCount))
	_, err = d.db.Exec(stmt, t.Args...)
	return err
}

func quote(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// CREATE TABLE IF NOT EXISTS语句，AutoKey时加自增主键
func CreateSQL(t TableData) (string, error) {
	if len(t.ColumnNames) == 0 {
		return "", ErrNoColumns
	}
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS " + quote(t.TableName) + " (")
	if t.AutoKey {
		b.WriteString("id INT(12) NOT NULL PRIMARY KEY AUTO_INCREMENT,")
	}
	for i, f := range t.ColumnNames {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(quote(f.Title) + " " + f.Type)
	}
	b.WriteString(") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;")
	return b.String(), nil
}

// 形如INSERT INTO t(a,b) VALUES (?,?),(?,?);，问号个数等于列数乘行数
func InsertSQL(t TableData) (string, error) {
	if len(t.ColumnNames) == 0 {
		return "", ErrNoColumns
	}
	if t.DataCount <= 0 {
		return "", errors.New("no rows to insert")
	}
	cols := make([]string, 0, len(t.ColumnNames))
	for _, f := range t.ColumnNames {
		cols = append(cols, quote(f.Title))
	}
	row := "(" + strings.Repeat(",?", len(t.ColumnNames))[1:] + ")"
	return "INSERT INTO " + quote(t.TableName) + "(" + strings.Join(cols, ",") + ") VALUES " +
		strings.Repeat(","+row, t.DataCount)[1:] + ";", nil
}

func DropSQL(t TableData) string {
	return "DROP TABLE IF EXISTS " + quote(t.TableName)
}
