package generation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oceanbase/powerpersona-go/pkg/generation"
)

func TestCleanOutput(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "  hello   world  ", want: "hello world"},
		{in: "line one\nline two", want: "line one line two"},
		{in: "wait , what ?! ok .", want: "wait, what?! ok."},
		{in: "tabs\tand\r\nbreaks", want: "tabs and breaks"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, generation.CleanOutput(tt.in), tt.in)
	}
}

func TestCleanResponse(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: `"lol same"`, want: "lol same"},
		{in: `'"nested"'`, want: "nested"},
		{in: `he said "hi"`, want: `he said "hi"`},
		{in: `"`, want: `"`},
		{in: "\"ok !\"\n", want: "ok!"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, generation.CleanResponse(tt.in), tt.in)
	}
}

func TestSplitQueries(t *testing.T) {
	out := generation.SplitQueries("Here are some queries:\nQuery: What does Mia think of ramen?\r\nQuery:   favourite  game (ever)!  \nnot a query\nQuery: ...\nQuery: café crème")
	assert.Equal(t, []string{
		"What does Mia think of ramen?",
		"favourite game ever",
		"café crème",
	}, out)

	assert.NotNil(t, generation.SplitQueries("nothing here"))
	assert.Empty(t, generation.SplitQueries("nothing here"))
}
