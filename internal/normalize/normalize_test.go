package normalize_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pluginforge/core/internal/normalize"
)

func TestTextTokenizesAndStems(t *testing.T) {
	res := normalize.Text("Running-Services_and_More")
	require.Equal(t, []string{"running", "services", "more"}, res.Tokens)
	require.Equal(t, []string{"runn", "servic", "more"}, res.Stems)
}

func TestSetStemmerEnabledDisablesStemming(t *testing.T) {
	t.Cleanup(func() { normalize.SetStemmerEnabled(true) })

	normalize.SetStemmerEnabled(false)
	res := normalize.Text("running services")
	require.Equal(t, []string{"running", "services"}, res.Tokens)
	require.Equal(t, res.Tokens, res.Stems, "stemming disabled: stems fall back to the raw token")

	normalize.SetStemmerEnabled(true)
	res = normalize.Text("running services")
	require.Equal(t, []string{"runn", "servic"}, res.Stems)
}
