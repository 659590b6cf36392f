package assignment

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Date
		wantErr bool
	}{
		{name: "empty", in: "", want: Date{}},
		{name: "iso date", in: "2024-03-09", want: NewDate(2024, time.March, 9)},
		{name: "slashes", in: "2024/03/09", want: NewDate(2024, time.March, 9)},
		{name: "short slashes", in: "2024/3/9", want: NewDate(2024, time.March, 9)},
		{name: "timestamp", in: "2024-03-09T00:00:00.000Z", want: NewDate(2024, time.March, 9)},
		{name: "rfc3339 with offset", in: "2024-03-09T23:30:00-08:00", want: NewDate(2024, time.March, 9)},
		{name: "garbage", in: "next tuesday", wantErr: true},
		{name: "invalid day", in: "2024-02-30", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDate_Compare(t *testing.T) {
	d := MustParseDate("2024-03-09")
	assert.Equal(t, 0, d.Compare(MustParseDate("2024-03-09")))
	assert.True(t, d.Before(MustParseDate("2024-03-10")))
	assert.True(t, d.Before(MustParseDate("2024-04-01")))
	assert.True(t, d.After(MustParseDate("2023-12-31")))
	assert.True(t, Date{}.Before(d))
}

func TestDate_JSON(t *testing.T) {
	type wrapper struct {
		D Date `json:"d"`
	}

	b, err := json.Marshal(wrapper{D: MustParseDate("2024-03-09")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d": "2024-03-09"}`, string(b))

	b, err = json.Marshal(wrapper{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d": ""}`, string(b))

	for _, in := range []string{`{"d": null}`, `{"d": ""}`, `{}`} {
		var w wrapper
		require.NoError(t, json.Unmarshal([]byte(in), &w), in)
		assert.True(t, w.D.IsZero(), in)
	}

	var w wrapper
	assert.Error(t, json.Unmarshal([]byte(`{"d": 12}`), &w))
}
