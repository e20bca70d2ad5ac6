package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePrefix(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain prefix", input: "192.168.1", want: "192.168.1"},
		{name: "trailing dot stripped", input: "192.168.1.", want: "192.168.1"},
		{name: "octet out of range", input: "256.1.1", wantErr: true},
		{name: "too few groups", input: "192.168", wantErr: true},
		{name: "too many groups", input: "192.168.1.1", wantErr: true},
		{name: "non-numeric group", input: "192.abc.1", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "boundary octets", input: "0.255.0", want: "0.255.0"},
		{name: "four digit octet", input: "1000.1.1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidatePrefix(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpandAllowList(t *testing.T) {
	tests := []struct {
		name   string
		tokens []string
		want   []string
	}{
		{name: "single values", tokens: []string{"1", "15"}, want: []string{"1", "15"}},
		{name: "range", tokens: []string{"3-6"}, want: []string{"3", "4", "5", "6"}},
		{name: "single element range", tokens: []string{"7-7"}, want: []string{"7"}},
		{name: "descending range dropped", tokens: []string{"9-3"}, want: nil},
		{name: "non-numeric dropped", tokens: []string{"abc", "1a", "-"}, want: nil},
		{name: "malformed range dropped", tokens: []string{"1-x", "x-5", "1-2-3"}, want: nil},
		{name: "duplicates collapse", tokens: []string{"1-3", "2", "3"}, want: []string{"1", "2", "3"}},
		{name: "mixed", tokens: []string{"1-2", "garbage", "20"}, want: []string{"1", "2", "20"}},
		{name: "empty token dropped", tokens: []string{""}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExpandAllowList(tt.tokens)
			assert.Len(t, got, len(tt.want))
			for _, suffix := range tt.want {
				assert.Contains(t, got, suffix)
			}
		})
	}
}

func TestValidateSuffixes(t *testing.T) {
	allowed := ExpandAllowList([]string{"1-10", "15"})

	t.Run("valid suffixes build hosts in input order", func(t *testing.T) {
		hosts, dups, errs := ValidateSuffixes("10.0.0", []string{"2", "1", "15"}, allowed)
		require.Empty(t, errs)
		require.Empty(t, dups)
		require.Len(t, hosts, 3)
		assert.Equal(t, "10.0.0.2", hosts[0].Addr())
		assert.Equal(t, "10.0.0.1", hosts[1].Addr())
		assert.Equal(t, "10.0.0.15", hosts[2].Addr())
	})

	t.Run("disallowed suffix records one error each", func(t *testing.T) {
		hosts, dups, errs := ValidateSuffixes("10.0.0", []string{"11", "99", "1"}, allowed)
		assert.Len(t, errs, 2)
		assert.Empty(t, dups)
		require.Len(t, hosts, 1)
		assert.Equal(t, "1", hosts[0].Suffix)
	})

	t.Run("non-numeric suffix is an error", func(t *testing.T) {
		hosts, _, errs := ValidateSuffixes("10.0.0", []string{"abc", ""}, allowed)
		assert.Empty(t, hosts)
		assert.Len(t, errs, 2)
	})

	t.Run("duplicate is a warning not an error", func(t *testing.T) {
		hosts, dups, errs := ValidateSuffixes("10.0.0", []string{"1", "1", "2"}, allowed)
		assert.Empty(t, errs)
		assert.Equal(t, []string{"1"}, dups)
		require.Len(t, hosts, 2)
		assert.Equal(t, "1", hosts[0].Suffix)
		assert.Equal(t, "2", hosts[1].Suffix)
	})
}

func TestHostLabel(t *testing.T) {
	h := Host{Prefix: "10.200.142", Suffix: "21"}
	assert.Equal(t, "[Client 21 | 10.200.142.21]", h.Label())
	assert.Equal(t, "10.200.142.21", h.Addr())
}
