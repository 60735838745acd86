package tasklib

import (
	"github.com/dszqbsm/fraudcrawler/spider"
	"github.com/dszqbsm/fraudcrawler/tasklib/fraud165"
	"github.com/dszqbsm/fraudcrawler/tasklib/fraud165js"
	"github.com/dszqbsm/fraudcrawler/tasklib/sources"
)

func init() {
	spider.TaskStore.Add(fraud165.Fraud165Task)
	spider.TaskStore.Add(sources.SourcesTask)
	spider.TaskStore.AddJSTask(fraud165js.Fraud165JSTask)
}
