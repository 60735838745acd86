package video

import (
	"errors"
	"io/fs"
	"sync"

	"github.com/dszqbsm/fraudcrawler/storage/filestorage"
	"go.uber.org/zap"
)

type Entry struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	DateProcessed string `json:"date_processed"`
	OutputFolder  string `json:"output_folder"`
	FramesCount   int    `json:"frames_count"`
}

// 已处理视频记录，视频哈希到处理结果，保存为一个JSON文件
type DB struct {
	mu      sync.Mutex
	path    string
	entries map[string]Entry
	logger  *zap.Logger
}

// 文件不存在或无法解析时从空记录开始
func OpenDB(path string, logger *zap.Logger) *DB {
	if logger == nil {
		logger = zap.NewNop()
	}
	db := &DB{path: path, entries: map[string]Entry{}, logger: logger}
	if err := filestorage.ReadJSON(path, &db.entries); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("read video database failed", zap.String("path", path), zap.Error(err))
		}
		db.entries = map[string]Entry{}
	}
	return db
}

func (db *DB) Has(hash string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, ok := db.entries[hash]
	return ok
}

func (db *DB) Get(hash string) (Entry, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	e, ok := db.entries[hash]
	return e, ok
}

func (db *DB) Put(hash string, e Entry) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.entries[hash] = e
}

func (db *DB) Len() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.entries)
}

func (db *DB) Save() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := filestorage.WriteJSON(db.path, db.entries); err != nil {
		db.logger.Warn("save video database failed", zap.String("path", db.path), zap.Error(err))
		return err
	}
	return nil
}
