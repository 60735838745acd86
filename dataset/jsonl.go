package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// 每行一个UTF-8 JSON对象，不转义HTML
func WriteJSONL[T any](path string, records []T) error {
	return writeJSONL(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, records)
}

// 追加到已有文件末尾，文件不存在时创建
func AppendJSONL[T any](path string, records []T) error {
	return writeJSONL(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, records)
}

func writeJSONL[T any](path string, flag int, records []T) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return w.Flush()
}

// 读取所有非空行
func ReadJSONL(path string) ([]json.RawMessage, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []json.RawMessage
	for _, line := range bytes.Split(b, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		out = append(out, json.RawMessage(line))
	}
	return out, nil
}

// 读取并解析为指定记录类型
func ReadRecords[T any](path string) ([]T, error) {
	lines, err := ReadJSONL(path)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(lines))
	for i, l := range lines {
		var v T
		if err := json.Unmarshal(l, &v); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, i+1, err)
		}
		out = append(out, v)
	}
	return out, nil
}
