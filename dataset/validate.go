package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/xeipuuv/gojsonschema"
)

type LineError struct {
	Line   int      `json:"line"`
	Errors []string `json:"errors"`
}

type Validation struct {
	Path    string      `json:"path"`
	Kind    Kind        `json:"kind"`
	Lines   int         `json:"lines"`
	Valid   int         `json:"valid"`
	Invalid []LineError `json:"invalid,omitempty"`
}

func (v Validation) OK() bool {
	return len(v.Invalid) == 0
}

var reflector = &jsonschema.Reflector{
	DoNotReference: true,
	Anonymous:      true,
}

// 由记录类型反射得到的JSON Schema
func Schema(kind Kind) (*jsonschema.Schema, error) {
	var s *jsonschema.Schema
	switch kind {
	case KindChat:
		s = reflector.Reflect(&ChatRecord{})
	case KindDPO:
		s = reflector.Reflect(&DPORecord{})
	case KindPrompt:
		s = reflector.Reflect(&PromptRecord{})
	default:
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
	s.Version = ""
	return s, nil
}

/*
输入JSONL文件和记录格式，输出逐行校验结果

空行跳过但计入行号；无法解析的行同样记为错误
*/
func Validate(path string, kind Kind) (Validation, error) {
	s, err := Schema(kind)
	if err != nil {
		return Validation{}, err
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return Validation{}, err
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return Validation{}, fmt.Errorf("compile schema: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return Validation{}, err
	}
	defer f.Close()

	out := Validation{Path: path, Kind: kind}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	n := 0
	for sc.Scan() {
		n++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		out.Lines++
		res, err := schema.Validate(gojsonschema.NewBytesLoader(line))
		if err != nil {
			out.Invalid = append(out.Invalid, LineError{Line: n, Errors: []string{err.Error()}})
			continue
		}
		if !res.Valid() {
			le := LineError{Line: n}
			for _, e := range res.Errors() {
				le.Errors = append(le.Errors, e.String())
			}
			out.Invalid = append(out.Invalid, le)
			continue
		}
		out.Valid++
	}
	return out, sc.Err()
}
