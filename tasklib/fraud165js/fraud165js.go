package fraud165js

// 基于动态规则抓取165全民防骗网的诈骗手法文章

import (
	"github.com/dszqbsm/fraudcrawler/spider"
)

const TaskName = "js_fraud165_articles"

// Root脚本生成文章列表页和若干已知文章，列表页中发现的文章再交给"文章"规则
var Fraud165JSTask = &spider.TaskModle{
	Options: spider.Options{
		Name:     TaskName,
		WaitTime: 2,
		MaxDepth: 2,
	},
	Root: `
		var ids = [1641, 1585, 1576, 1551, 1543, 1516, 1477, 1474, 1467, 1466, 1422, 1425];
		var arr = new Array();
		arr.push({
			URL: "https://165.npa.gov.tw/#/articles/C",
			Priority: 1,
			RuleName: "文章列表",
			Method: "GET",
		});
		for (var i = 0; i < ids.length; i++) {
			arr.push({
				URL: "https://165.npa.gov.tw/#/article/C/" + ids[i],
				RuleName: "文章",
				Method: "GET",
			});
		}
		AddJsReq(arr);
	`,
	Rules: []spider.RuleModle{
		{
			Name: "文章列表",
			ParseFunc: `
			ctx.ParseJSReg("文章", "(https://165\\.npa\\.gov\\.tw/#/article/C/\\d+)");
			`,
		},
		{
			Name:       "文章",
			ItemFields: spider.PageFields,
			ParseFunc: `
			ctx.OutputPage();
			`,
		},
	},
}
