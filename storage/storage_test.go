package storage

import (
	"errors"
	"testing"

	"github.com/dszqbsm/fraudcrawler/spider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cellAt(i int, url string) *spider.DataCell {
	c := &spider.DataCell{Data: map[string]interface{}{"Data": map[string]interface{}{"url": url}}}
	if i >= 0 {
		c.Data["Index"] = i
	}
	return c
}

func TestCollectorOrdersByIndex(t *testing.T) {
	c := NewCollector()
	require.NoError(t, c.Save(cellAt(2, "c"), cellAt(-1, "x")))
	require.NoError(t, c.Save(cellAt(0, "a"), cellAt(1, "b")))

	var urls []string
	for _, cell := range c.Cells() {
		urls = append(urls, cell.Page()["url"].(string))
	}
	assert.Equal(t, []string{"a", "b", "c", "x"}, urls)
	assert.Equal(t, 4, c.Len())
}

type failing struct{}

func (failing) Save(...*spider.DataCell) error { return errors.New("disk full") }

func TestMulti(t *testing.T) {
	a, b := NewCollector(), NewCollector()
	m := Multi{a, nil, failing{}, b}

	err := m.Save(cellAt(0, "a"))
	assert.EqualError(t, err, "disk full")
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 1, b.Len())
}
