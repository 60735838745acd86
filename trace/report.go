package trace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
)

type TypeCost struct {
	Count int     `json:"count"`
	Cost  float64 `json:"cost"`
}

type Report struct {
	TotalCost  float64             `json:"total_cost"`
	ModelCosts map[string]float64  `json:"model_costs"`
	RunTypes   map[string]TypeCost `json:"run_types"`
	RunCount   int                 `json:"run_count"`
}

/*
输入账本路径，输出成本报告和错误

成本取元数据中的cost_estimate，模型取输入中的model，缺失时记为unknown；无法解析的行跳过
*/
func CostReport(path string) (Report, error) {
	report := Report{
		ModelCosts: map[string]float64{},
		RunTypes:   map[string]TypeCost{},
	}

	f, err := os.Open(path)
	if err != nil {
		return report, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		var r Run
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			continue
		}

		cost, _ := r.Metadata["cost_estimate"].(float64)
		model, _ := r.Inputs["model"].(string)
		if model == "" {
			model = "unknown"
		}
		runType := r.RunType
		if runType == "" {
			runType = "unknown"
		}

		report.TotalCost += cost
		report.ModelCosts[model] += cost
		tc := report.RunTypes[runType]
		tc.Count++
		tc.Cost += cost
		report.RunTypes[runType] = tc
		report.RunCount++
	}
	return report, sc.Err()
}

// 按成本从高到低打印，成本为0的项省略
func Display(w io.Writer, r Report) {
	fmt.Fprintln(w, "\n========== API 使用成本報告 ==========")
	fmt.Fprintf(w, "總運行數量: %d\n", r.RunCount)
	fmt.Fprintf(w, "總成本: $%.4f\n", r.TotalCost)

	fmt.Fprintln(w, "\n按模型劃分的成本:")
	models := make([]string, 0, len(r.ModelCosts))
	for m := range r.ModelCosts {
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool { return r.ModelCosts[models[i]] > r.ModelCosts[models[j]] })
	for _, m := range models {
		if c := r.ModelCosts[m]; c > 0 {
			fmt.Fprintf(w, "  - %s: $%.4f (%.1f%%)\n", m, c, c/r.TotalCost*100)
		}
	}

	fmt.Fprintln(w, "\n按運行類型劃分:")
	types := make([]string, 0, len(r.RunTypes))
	for t := range r.RunTypes {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return r.RunTypes[types[i]].Cost > r.RunTypes[types[j]].Cost })
	for _, t := range types {
		if d := r.RunTypes[t]; d.Cost > 0 {
			fmt.Fprintf(w, "  - %s: %d 次運行, $%.4f (%.1f%%)\n", t, d.Count, d.Cost, d.Cost/r.TotalCost*100)
		}
	}
	fmt.Fprintln(w, "=======================================")
}
