package fraud165

// 通过Jina Reader逐个抓取165全民防骗网及相关外部来源

import (
	"github.com/dszqbsm/fraudcrawler/config"
	"github.com/dszqbsm/fraudcrawler/spider"
)

const (
	TaskName = "fraud165_jina"
	RuleName = "jina頁面"
)

// 抓取记录的字段
var ItemFields = []string{"url", "jina_url", "success", "title", "content", "error", "timestamp"}

// 使用默认种子列表的预设任务
var Fraud165Task = NewTask(config.DefaultBaseURLs)

/*
输入种子URL列表和任务配置项，输出任务

根任务规则：每个URL生成一个请求，临时数据中记录其在列表中的位置，结果据此还原输入顺序

子任务规则：

- jina頁面：整页内容作为一条抓取记录输出

请求最终失败时由Failure输出失败记录
*/
func NewTask(urls []string, opts ...spider.Option) *spider.Task {
	seeds := append([]string(nil), urls...)
	opts = append([]spider.Option{spider.WithName(TaskName), spider.WithMaxDepth(0)}, opts...)

	task := spider.NewTask(opts...)
	task.Rule = spider.RuleTree{
		Root: func() ([]*spider.Request, error) {
			roots := make([]*spider.Request, 0, len(seeds))
			for i, u := range seeds {
				req := &spider.Request{
					URL:      u,
					Method:   "GET",
					RuleName: RuleName,
				}
				if err := req.Temp().Set(spider.IndexKey, i); err != nil {
					return nil, err
				}
				roots = append(roots, req)
			}
			return roots, nil
		},
		Trunk: map[string]*spider.Rule{
			RuleName: {ItemFields: ItemFields, ParseFunc: ParsePage},
		},
		Failure: spider.FailurePage,
	}
	return task
}

func ParsePage(ctx *spider.Context) (spider.ParseResult, error) {
	return ctx.OutputPage(), nil
}
