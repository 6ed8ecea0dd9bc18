package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValues_TypedLookups(t *testing.T) {
	v := Values{
		"llm.model":               "llama3.2",
		"sync.workers":            int64(4),
		"chunking.max_chars":      float64(900),
		"databases.crm.describe":  true,
		"sources.text.extensions": []any{".md", 3, ".txt"},
	}

	assert.Equal(t, "llama3.2", v.String("llm.model"))
	assert.Equal(t, 4, v.Int("sync.workers"))
	assert.Equal(t, 900, v.Int("chunking.max_chars"))
	assert.True(t, v.Bool("databases.crm.describe"))
	assert.Equal(t, []string{".md", ".txt"}, v.Strings("sources.text.extensions"))

	assert.Empty(t, v.String("sync.workers"))
	assert.Zero(t, v.Int("llm.model"))
	assert.False(t, v.Bool("missing"))
	assert.Nil(t, v.Strings("missing"))
}

func TestValues_SubKeys(t *testing.T) {
	v := Values{
		"databases.crm.dsn":     "a",
		"databases.crm.schema":  "public",
		"databases.billing.dsn": "b",
		"databasesx.other":      "c",
	}

	assert.Equal(t, []string{"billing", "crm"}, v.SubKeys("databases"))
	assert.Equal(t, []string{"dsn", "schema"}, v.SubKeys("databases.crm."))
	assert.Empty(t, v.SubKeys("llm"))
}

func TestFlattenAndNest(t *testing.T) {
	tables := map[string]any{
		"data_dir": "/srv",
		"databases": map[string]any{
			"crm": map[string]any{"dsn": "postgres://crm", "describe_tables": true},
		},
	}

	flat := Flatten(tables)
	assert.Equal(t, Values{
		"data_dir":                      "/srv",
		"databases.crm.dsn":             "postgres://crm",
		"databases.crm.describe_tables": true,
	}, flat)
	assert.Equal(t, tables, flat.Nest())
}

func TestNest_TableWinsOverScalar(t *testing.T) {
	v := Values{
		"databases":         "not a table",
		"databases.crm.dsn": "postgres://crm",
	}

	assert.Equal(t, map[string]any{
		"databases": map[string]any{"crm": map[string]any{"dsn": "postgres://crm"}},
	}, v.Nest())
}
