package video

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/dszqbsm/fraudcrawler/llm"
	"github.com/dszqbsm/fraudcrawler/trace"
)

const (
	framePrompt   = "你是一位專門分析反詐騙宣導視頻的專家。請詳細描述這些幀中顯示的詐騙手法、防範方法、警告標誌，以及任何相關的關鍵信息。特別注意識別詐騙類型和關鍵教育點。"
	summaryPrompt = "你是一位反詐騙教育專家，專門總結分析反詐騙宣導視頻的內容。請基於提供的幀分析，創建一個全面而有條理的視頻摘要，重點強調詐騙類型、常見手法、警告跡象、預防措施和關鍵教育信息。"
)

type FrameAnalysis struct {
	Time        int    `json:"time"`
	TimeStr     string `json:"time_str"`
	Description string `json:"description"`
	FramePath   string `json:"frame_path"` // 相对视频目录
}

// 用视觉模型分析截图、汇总成视频摘要；client为nil时每次调用都失败
type Analyzer struct {
	client *llm.Client
}

func NewAnalyzer(client *llm.Client) *Analyzer {
	return &Analyzer{client: client}
}

func (a *Analyzer) chat(ctx context.Context, req llm.Request) (string, error) {
	if a == nil || a.client == nil {
		return "", llm.ErrNoAPIKey
	}
	resp, err := a.client.Chat(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

/*
输入上下文、截图、视频标题和父运行，输出分析文字

失败时返回"分析失敗: "开头的文字
*/
func (a *Analyzer) AnalyzeFrame(ctx context.Context, f Frame, title string, parent *trace.Run) string {
	img, err := os.ReadFile(f.Path)
	if err != nil {
		return "分析失敗: " + err.Error()
	}

	content, err := a.chat(ctx, llm.Request{
		System:       framePrompt,
		Prompt:       fmt.Sprintf("這是反詐騙宣導視頻「%s」在 %s 時間點的畫面。請詳細描述你看到的內容，尤其是與防詐騙相關的信息:", title, f.TimeStr),
		ImageDataURL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(img),
		MaxTokens:    500,
		Name:         "frame_analysis",
		Parent:       parent,
		Inputs:       map[string]interface{}{"frame_time": f.TimeStr, "video_title": title},
	})
	if err != nil {
		return "分析失敗: " + err.Error()
	}
	return content
}

/*
输入上下文、按时间排列的帧分析、视频标题和父运行，输出摘要

失败时返回"摘要生成失敗: "开头的文字
*/
func (a *Analyzer) Summarize(ctx context.Context, analyses []FrameAnalysis, title string, parent *trace.Run) string {
	var sb strings.Builder
	for _, fa := range analyses {
		fmt.Fprintf(&sb, "時間點 %s:\n%s\n\n", fa.TimeStr, fa.Description)
	}

	content, err := a.chat(ctx, llm.Request{
		System: summaryPrompt,
		Prompt: fmt.Sprintf("以下是反詐騙宣導視頻「%s」按時間順序的幀分析。請創建一個結構清晰的視頻摘要，包括:\n\n"+
			"1. 視頻介紹的詐騙類型\n2. 詐騙手法的運作方式\n3. 如何識別此類詐騙\n4. 建議的預防措施\n5. 關鍵教育要點\n\n"+
			"幀分析內容如下:\n\n%s", title, sb.String()),
		MaxTokens: 1500,
		Name:      "video_summary_generation",
		Parent:    parent,
		Inputs:    map[string]interface{}{"video_title": title},
	})
	if err != nil {
		return "摘要生成失敗: " + err.Error()
	}
	return content
}
