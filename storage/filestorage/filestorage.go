package filestorage

// 每条抓取记录单独保存为一个JSON文件

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dszqbsm/fraudcrawler/spider"
	"go.uber.org/zap"
)

type FileStore struct {
	dir    string
	logger *zap.Logger
	now    func() time.Time
}

func New(dir string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir, logger: logger, now: time.Now}, nil
}

func (f *FileStore) Save(cells ...*spider.DataCell) error {
	for _, c := range cells {
		page := c.Page()
		if page == nil {
			continue
		}
		u, _ := page["url"].(string)
		path := filepath.Join(f.dir, FileName(u, f.now()))
		if err := WriteJSON(path, page); err != nil {
			return fmt.Errorf("save %s: %w", u, err)
		}
		f.logger.Info("saved result", zap.String("path", path))
	}
	return nil
}

/*
输入URL和时间，输出文件名

域名后接路径（/换成_，空路径为_root），hash路由的片段同样追加，避免单页应用的不同页面重名
*/
func FileName(raw string, t time.Time) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "invalid_" + t.Format("20060102_150405") + ".json"
	}
	path := strings.ReplaceAll(u.Path, "/", "_")
	if path == "" {
		path = "_root"
	}
	if frag := strings.Trim(u.Fragment, "/"); frag != "" {
		path += "_" + strings.ReplaceAll(frag, "/", "_")
	}
	return u.Host + path + "_" + t.Format("20060102_150405") + ".json"
}

// 缩进两格、不转义HTML的UTF-8 JSON
func WriteJSON(path string, v interface{}) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func ReadJSON(path string, v interface{}) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
