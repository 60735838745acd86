package spider

// 采集规则树
type RuleTree struct {
	Root  func() ([]*Request, error) // 生成种子请求
	Trunk map[string]*Rule           // 规则名 -> 规则

	// 请求重试后仍失败时调用，返回的Items照常进入存储；为nil时只记日志
	Failure func(req *Request, err error) ParseResult
}

// 采集规则节点
type Rule struct {
	ItemFields []string // 输出数据的字段，建表时使用
	ParseFunc  func(*Context) (ParseResult, error)
}

type (
	// JS任务模板，Root和规则都是otto执行的脚本
	TaskModle struct {
		Options
		Root  string      `json:"root_script"`
		Rules []RuleModle `json:"rule"`
	}

	RuleModle struct {
		Name       string   `json:"name"`
		ItemFields []string `json:"item_fields"`
		ParseFunc  string   `json:"parse_script"`
	}
)
