package sqlstorage

// 把抓取记录分表缓存，攒够一批后写入MySQL

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/dszqbsm/fraudcrawler/spider"
	"github.com/dszqbsm/fraudcrawler/sqldb"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type SqlStore struct {
	mu         sync.Mutex
	dataDocker map[string][]*spider.DataCell // 表名 -> 待写入的数据
	order      []string                      // 表的首次出现顺序，Flush按此顺序写入
	db         sqldb.DBer
	Table      map[string]struct{} // 已创建的表
	options
}

func New(opts ...Option) (*SqlStore, error) {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	if options.BatchCount <= 0 {
		options.BatchCount = 1
	}
	s := &SqlStore{
		dataDocker: make(map[string][]*spider.DataCell),
		Table:      make(map[string]struct{}),
		options:    options,
	}
	s.db = options.db
	if s.db == nil {
		db, err := sqldb.New(
			sqldb.WithConnURL(s.sqlURL),
			sqldb.WithLogger(s.logger),
		)
		if err != nil {
			return nil, err
		}
		s.db = db
	}
	return s, nil
}

/*
输入若干数据单元，输出错误

表不存在时按规则的ItemFields建表；某张表的缓存达到BatchCount时立即写入
*/
func (s *SqlStore) Save(dataCells ...*spider.DataCell) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs error
	for _, cell := range dataCells {
		columns, err := getFields(cell)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}

		name := cell.GetTableName()
		if _, ok := s.Table[name]; !ok {
			err := s.db.CreateTable(sqldb.TableData{
				TableName:   name,
				ColumnNames: columns,
				AutoKey:     true,
			})
			if err != nil {
				s.logger.Error("create table failed", zap.String("table", name), zap.Error(err))
				errs = multierr.Append(errs, err)
				continue
			}
			s.Table[name] = struct{}{}
			s.order = append(s.order, name)
		}

		s.dataDocker[name] = append(s.dataDocker[name], cell)
		if len(s.dataDocker[name]) >= s.BatchCount {
			errs = multierr.Append(errs, s.flushTable(name))
		}
	}
	return errs
}

// 写入全部缓存
func (s *SqlStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs error
	for _, name := range s.order {
		errs = multierr.Append(errs, s.flushTable(name))
	}
	return errs
}

func (s *SqlStore) Close() error {
	err := s.Flush()
	if c, ok := s.db.(io.Closer); ok {
		err = multierr.Append(err, c.Close())
	}
	return err
}

func (s *SqlStore) flushTable(name string) error {
	cells := s.dataDocker[name]
	if len(cells) == 0 {
		return nil
	}
	delete(s.dataDocker, name)

	columns, err := getFields(cells[0])
	if err != nil {
		return err
	}

	args := make([]interface{}, 0, len(cells)*len(columns))
	for _, cell := range cells {
		row, err := rowValues(cell)
		if err != nil {
			return err
		}
		args = append(args, row...)
	}

	if err := s.db.Insert(sqldb.TableData{
		TableName:   name,
		ColumnNames: columns,
		Args:        args,
		DataCount:   len(cells),
	}); err != nil {
		s.logger.Error("insert data failed", zap.String("table", name), zap.Error(err))
		return err
	}
	return nil
}

func ruleAndTask(cell *spider.DataCell) (string, string, error) {
	ruleName, ok := cell.Data["Rule"].(string)
	if !ok {
		return "", "", errors.New("data cell has no Rule")
	}
	taskName, ok := cell.Data["Task"].(string)
	if !ok {
		return "", "", errors.New("data cell has no Task")
	}
	return ruleName, taskName, nil
}

// 字段取自规则的ItemFields，任务自带规则时优先，最后追加URL和Time两列
func itemFields(cell *spider.DataCell) ([]string, error) {
	ruleName, taskName, err := ruleAndTask(cell)
	if err != nil {
		return nil, err
	}
	if cell.Task != nil {
		if r, ok := cell.Task.Rule.Trunk[ruleName]; ok && len(r.ItemFields) > 0 {
			return r.ItemFields, nil
		}
	}
	fields := spider.GetFields(taskName, ruleName)
	if len(fields) == 0 {
		return nil, fmt.Errorf("no item fields for %s/%s", taskName, ruleName)
	}
	return fields, nil
}

func getFields(cell *spider.DataCell) ([]sqldb.Field, error) {
	fields, err := itemFields(cell)
	if err != nil {
		return nil, err
	}
	columns := make([]sqldb.Field, 0, len(fields)+2)
	for _, f := range fields {
		columns = append(columns, sqldb.Field{Title: f, Type: "MEDIUMTEXT"})
	}
	columns = append(columns,
		sqldb.Field{Title: "URL", Type: "VARCHAR(255)"},
		sqldb.Field{Title: "Time", Type: "VARCHAR(255)"},
	)
	return columns, nil
}

// 字符串原样写入，其他类型转为JSON
func rowValues(cell *spider.DataCell) ([]interface{}, error) {
	fields, err := itemFields(cell)
	if err != nil {
		return nil, err
	}
	data := cell.Page()
	row := make([]interface{}, 0, len(fields)+2)
	for _, field := range fields {
		switch v := data[field].(type) {
		case nil:
			row = append(row, "")
		case string:
			row = append(row, v)
		default:
			j, err := json.Marshal(v)
			if err != nil {
				row = append(row, "")
			} else {
				row = append(row, string(j))
			}
		}
	}
	u, _ := cell.Data["URL"].(string)
	tm, _ := cell.Data["Time"].(string)
	return append(row, u, tm), nil
}
