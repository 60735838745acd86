package jina

import (
	"context"
	"errors"

	"github.com/dszqbsm/fraudcrawler/spider"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

// 单个URL的抓取结果
type CrawlResult struct {
	URL       string `json:"url"`
	JinaURL   string `json:"jina_url,omitempty"`
	Success   bool   `json:"success"`
	Title     string `json:"title,omitempty"`
	Content   string `json:"content,omitempty"`
	Error     string `json:"error,omitempty"`
	Category  string `json:"category,omitempty"`
	Timestamp string `json:"timestamp"`
}

type CrawlReport struct {
	TotalURLs        int           `json:"total_urls"`
	SuccessfulCrawls int           `json:"successful_crawls"`
	Timestamp        string        `json:"timestamp"`
	Results          []CrawlResult `json:"results"`
}

/*
输入上下文和目标URL，输出抓取结果

任何失败都体现在结果的success和error字段中，不返回错误
*/
func (c *Client) CrawlURL(ctx context.Context, target string) CrawlResult {
	jinaURL := c.ReaderURL(target)
	c.logger.Info("crawling", zap.String("url", target))

	body, err := c.Read(ctx, target)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			return CrawlResult{
				URL:       target,
				JinaURL:   jinaURL,
				Error:     se.Error(),
				Timestamp: spider.Timestamp(),
			}
		}
		c.logger.Error("error during crawling", zap.String("url", target), zap.Error(err))
		return CrawlResult{
			URL:       target,
			Error:     err.Error(),
			Timestamp: spider.Timestamp(),
		}
	}

	title := spider.PageTitle(body)
	c.logger.Debug("page title", zap.String("title", title))
	return CrawlResult{
		URL:       target,
		JinaURL:   jinaURL,
		Success:   true,
		Title:     title,
		Content:   string(body),
		Timestamp: spider.Timestamp(),
	}
}

// 逐个抓取并汇总，顺序与输入一致
func (c *Client) CrawlURLs(ctx context.Context, urls []string) CrawlReport {
	c.logger.Info("starting to crawl", zap.Int("count", len(urls)))

	bar := progressbar.NewOptions(len(urls),
		progressbar.OptionSetDescription("Crawling URLs"),
		progressbar.OptionSetWriter(c.progress),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(50),
	)

	results := make([]CrawlResult, 0, len(urls))
	for _, u := range urls {
		results = append(results, c.CrawlURL(ctx, u))
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	report := NewReport(results)
	c.logger.Info("crawling completed",
		zap.Int("success", report.SuccessfulCrawls),
		zap.Int("total", report.TotalURLs))
	return report
}

func NewReport(results []CrawlResult) CrawlReport {
	report := CrawlReport{
		TotalURLs: len(results),
		Timestamp: spider.Timestamp(),
		Results:   results,
	}
	for _, r := range results {
		if r.Success {
			report.SuccessfulCrawls++
		}
	}
	return report
}

// 把引擎输出的数据单元还原成抓取结果
func ResultFromCell(cell *spider.DataCell) CrawlResult {
	page := cell.Page()
	str := func(k string) string {
		s, _ := page[k].(string)
		return s
	}
	ok, _ := page["success"].(bool)
	return CrawlResult{
		URL:       str("url"),
		JinaURL:   str("jina_url"),
		Success:   ok,
		Title:     str("title"),
		Content:   str("content"),
		Error:     str("error"),
		Category:  str("category"),
		Timestamp: str("timestamp"),
	}
}
