package video

import (
	"bufio"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
)

var unsafeChars = regexp.MustCompile(`[\\/*?:"<>|]`)

// 只识别youtu.be/ID和youtube.com/watch?v=ID，其他返回空串
func VideoID(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	switch u.Host {
	case "youtu.be":
		return strings.TrimPrefix(u.Path, "/")
	case "www.youtube.com", "youtube.com":
		if u.Path == "/watch" {
			return u.Query().Get("v")
		}
	}
	return ""
}

// 同一视频的不同URL得到相同的哈希
func Hash(raw string) string {
	key := VideoID(raw)
	if key == "" {
		key = raw
	}
	sum := md5.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}

func Sanitize(name string) string {
	return unsafeChars.ReplaceAllString(name, "_")
}

// 按字符截取前n个
func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// 秒数格式化为HH:MM:SS
func clock(sec int) string {
	return fmt.Sprintf("%02d:%02d:%02d", sec/3600, sec%3600/60, sec%60)
}

// 每行一个URL，跳过空行和#开头的行
func ReadURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var urls []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, sc.Err()
}
