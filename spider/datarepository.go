package spider

type DataRepository interface {
	Save(datas ...*DataCell) error
}

type DataCell struct {
	Task *Task
	Data map[string]interface{}
}

// 表名默认取任务名，数据中显式给出Table时优先
func (d *DataCell) GetTableName() string {
	if t, ok := d.Data["Table"].(string); ok && t != "" {
		return t
	}
	return d.GetTaskName()
}

func (d *DataCell) GetTaskName() string {
	s, _ := d.Data["Task"].(string)
	return s
}

// 抓取记录本身，即Output时传入的数据
func (d *DataCell) Page() map[string]interface{} {
	m, _ := d.Data["Data"].(map[string]interface{})
	return m
}
