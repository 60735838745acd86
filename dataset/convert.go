package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dszqbsm/fraudcrawler/storage/filestorage"
)

const AssistantPrompt = "你是一個專業的詐騙防範助手，可以幫助用戶識別各種詐騙手法並提供防範建議。"

const videoPrompt = "你是一個專業的反詐騙顧問，專門幫助人們識別和預防線上遊戲詐騙。"

const videoProtection = "根據分析，以下是保護自己的關鍵步驟：\n\n" +
	"1. 認清官方管道：\n" +
	"   - 只通過遊戲官方商店購買道具\n" +
	"   - 不要相信非官方的促銷活動\n" +
	"   - 確認所有交易都在遊戲內進行\n\n" +
	"2. 保護個人信息：\n" +
	"   - 永遠不要分享遊戲序號\n" +
	"   - 不要告訴他人帳號密碼\n" +
	"   - 啟用雙重驗證\n\n" +
	"3. 提高警覺性：\n" +
	"   - 對限時優惠要特別小心\n" +
	"   - 不要相信免費道具的承諾\n" +
	"   - 避免點擊不明連結\n\n" +
	"4. 及時求助：\n" +
	"   - 遇到可疑情況立即告訴父母或老師\n" +
	"   - 可以撥打165反詐騙專線\n" +
	"   - 向遊戲官方回報可疑行為\n\n" +
	"記住：寧可錯過一個「優惠」，也不要冒險損失帳號或金錢！"

// 训练文件格式
type Kind string

const (
	KindChat   Kind = "chat"
	KindDPO    Kind = "dpo"
	KindPrompt Kind = "prompt"
)

type Message struct {
	Role    string `json:"role" jsonschema:"enum=system,enum=user,enum=assistant"`
	Content string `json:"content"`
}

type ChatRecord struct {
	Messages []Message `json:"messages" jsonschema:"minItems=2"`
}

type DPOInput struct {
	Messages          []Message                `json:"messages" jsonschema:"minItems=1"`
	Tools             []map[string]interface{} `json:"tools"`
	ParallelToolCalls bool                     `json:"parallel_tool_calls"`
}

type DPORecord struct {
	Input              DPOInput  `json:"input"`
	PreferredOutput    []Message `json:"preferred_output" jsonschema:"minItems=1"`
	NonPreferredOutput []Message `json:"non_preferred_output" jsonschema:"minItems=1"`
}

type PromptRecord struct {
	Prompt     string `json:"prompt"`
	Completion string `json:"completion"`
}

// 按答案的内容给出一个模糊、缺少具体步骤的较差回答
func NonPreferred(output string) string {
	switch {
	case strings.Contains(output, "辨識"):
		return "這種詐騙很常見，要小心提防就好了。記得不要輕易相信網路上的廣告。"
	case strings.Contains(output, "處理"):
		return "可以向警察報案，或是找相關單位協助。"
	case strings.Contains(output, "警示"):
		return "主要就是要看對方的行為是否可疑，如果感覺不對就要提高警覺。"
	default:
		return "需要注意這類詐騙，保持警覺即可。"
	}
}

func ToChat(items []SFTItem) []ChatRecord {
	out := make([]ChatRecord, 0, len(items))
	for _, it := range items {
		out = append(out, ChatRecord{Messages: []Message{
			{Role: "system", Content: AssistantPrompt},
			{Role: "user", Content: it.Instruction},
			{Role: "assistant", Content: it.Output},
		}})
	}
	return out
}

func ToDPO(items []SFTItem) []DPORecord {
	out := make([]DPORecord, 0, len(items))
	for _, it := range items {
		out = append(out, DPORecord{
			Input: DPOInput{
				Messages: []Message{
					{Role: "system", Content: AssistantPrompt},
					{Role: "user", Content: it.Instruction},
				},
				Tools:             []map[string]interface{}{},
				ParallelToolCalls: true,
			},
			PreferredOutput:    []Message{{Role: "assistant", Content: it.Output}},
			NonPreferredOutput: []Message{{Role: "assistant", Content: NonPreferred(it.Output)}},
		})
	}
	return out
}

// 旧版prompt/completion格式，两端各追加一个换行
func ToPrompt(items []SFTItem) []PromptRecord {
	out := make([]PromptRecord, 0, len(items))
	for _, it := range items {
		out = append(out, PromptRecord{Prompt: it.Instruction + "\n", Completion: it.Output + "\n"})
	}
	return out
}

/*
输入训练数据文件、输出JSONL路径和格式，输出写出的记录数

只读取训练数据中的sft_data
*/
func Convert(in, out string, kind Kind) (int, error) {
	td, err := ReadTrainingData(in)
	if err != nil {
		return 0, err
	}
	switch kind {
	case KindChat:
		recs := ToChat(td.SFTData)
		return len(recs), WriteJSONL(out, recs)
	case KindDPO:
		recs := ToDPO(td.SFTData)
		return len(recs), WriteJSONL(out, recs)
	case KindPrompt:
		recs := ToPrompt(td.SFTData)
		return len(recs), WriteJSONL(out, recs)
	}
	return 0, fmt.Errorf("unknown kind %q", kind)
}

type frameAnalysis struct {
	Description string `json:"description"`
}

/*
输入视频分析输出目录，输出对话格式的训练数据

每个包含video_summary.txt和frame_analyses.json的子目录生成一条摘要对话，
每个有描述的帧再生成一条场景对话
*/
func FromVideoAnalyses(dir string) ([]ChatRecord, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var out []ChatRecord
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		sub := filepath.Join(dir, e.Name())
		summary, err := os.ReadFile(filepath.Join(sub, "video_summary.txt"))
		if err != nil {
			continue
		}
		framesFile := filepath.Join(sub, "frame_analyses.json")
		if _, err := os.Stat(framesFile); err != nil {
			continue
		}
		var frames []frameAnalysis
		if err := filestorage.ReadJSON(framesFile, &frames); err != nil {
			return nil, err
		}
		out = append(out, videoExamples(string(summary), frames)...)
	}
	return out, nil
}

func videoExamples(summary string, frames []frameAnalysis) []ChatRecord {
	out := []ChatRecord{{Messages: []Message{
		{Role: "system", Content: videoPrompt},
		{Role: "user", Content: "請告訴我關於線上遊戲詐騙的主要類型和預防方法。"},
		{Role: "assistant", Content: summary},
		{Role: "user", Content: "這些詐騙手法聽起來很危險，我該如何保護自己？"},
		{Role: "assistant", Content: videoProtection},
	}}}

	for _, f := range frames {
		desc := f.Description
		if desc == "" {
			continue
		}
		first, _, _ := strings.Cut(desc, "\n")
		answer := desc
		if parts := strings.Split(desc, "\n\n"); len(parts) > 1 {
			answer = "根據這個場景，以下是判斷和應對的方法：\n\n" + parts[1]
		}
		out = append(out, ChatRecord{Messages: []Message{
			{Role: "system", Content: videoPrompt},
			{Role: "user", Content: "在遊戲中遇到這種情況該怎麼辦？" + first},
			{Role: "assistant", Content: desc},
			{Role: "user", Content: "這種情況看起來很誘人，但我該如何判斷是否為詐騙？"},
			{Role: "assistant", Content: answer},
		}})
	}
	return out
}

// 视频对话写入out，appendTo不为空时同时追加到该文件
func ConvertVideoAnalyses(dir, out, appendTo string) (int, error) {
	recs, err := FromVideoAnalyses(dir)
	if err != nil {
		return 0, err
	}
	if err := WriteJSONL(out, recs); err != nil {
		return 0, err
	}
	if appendTo != "" {
		if err := AppendJSONL(appendTo, recs); err != nil {
			return len(recs), err
		}
	}
	return len(recs), nil
}
