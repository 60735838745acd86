package sqldb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSQL(t *testing.T) {
	tests := []struct {
		name    string
		table   TableData
		want    string
		wantErr bool
	}{
		{name: "no columns", table: TableData{TableName: "t"}, wantErr: true},
		{
			name:  "auto key",
			table: TableData{TableName: "fraud165_jina", ColumnNames: []Field{{"url", "MEDIUMTEXT"}, {"Time", "VARCHAR(255)"}}, AutoKey: true},
			want:  "CREATE TABLE IF NOT EXISTS `fraud165_jina` (id INT(12) NOT NULL PRIMARY KEY AUTO_INCREMENT,`url` MEDIUMTEXT,`Time` VARCHAR(255)) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CreateSQL(tt.table)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoColumns)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInsertSQL(t *testing.T) {
	got, err := InsertSQL(TableData{
		TableName:   "t",
		ColumnNames: []Field{{Title: "a"}, {Title: "b"}},
		DataCount:   2,
	})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO `t`(`a`,`b`) VALUES (?,?),(?,?);", got)

	_, err = InsertSQL(TableData{TableName: "t", ColumnNames: []Field{{Title: "a"}}})
	assert.Error(t, err)
}

func TestDropSQL(t *testing.T) {
	assert.Equal(t, "DROP TABLE IF EXISTS `we``ird`", DropSQL(TableData{TableName: "we`ird"}))
}
