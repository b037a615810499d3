package manifest

import (
	"testing"

	"github.com/sink-tools/sink/pkg/errors"
)

func TestParsePathspec(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		defaultOwner string
		want         Pathspec
		wantErr      bool
	}{
		{
			name:  "full form",
			input: "octocat/ripgrep:rg-*.tar.gz",
			want:  Pathspec{Owner: "octocat", Repository: "ripgrep", Pattern: "rg-*.tar.gz"},
		},
		{
			name:         "short form with default owner",
			input:        "ripgrep:rg-*",
			defaultOwner: "octocat",
			want:         Pathspec{Owner: "octocat", Repository: "ripgrep", Pattern: "rg-*"},
		},
		{
			name:    "short form without default owner",
			input:   "ripgrep:rg-*",
			wantErr: true,
		},
		{
			name:    "no colon",
			input:   "octocat/ripgrep",
			wantErr: true,
		},
		{
			name:    "two colons",
			input:   "octocat/ripgrep:a:b",
			wantErr: true,
		},
		{
			name:    "two slashes",
			input:   "a/b/c:pattern",
			wantErr: true,
		},
		{
			name:    "empty owner",
			input:   "/repo:pattern",
			wantErr: true,
		},
		{
			name:    "empty repository",
			input:   "owner/:pattern",
			wantErr: true,
		},
		{
			name:    "empty pattern",
			input:   "owner/repo:",
			wantErr: true,
		},
		{
			name:    "empty input",
			input:   "",
			wantErr: true,
		},
		{
			name:         "case preserved",
			input:        "Repo:File-*.ZIP",
			defaultOwner: "OctoCat",
			want:         Pathspec{Owner: "OctoCat", Repository: "Repo", Pattern: "File-*.ZIP"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePathspec(tt.input, tt.defaultOwner)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParsePathspec(%q) error = nil, want error", tt.input)
				}
				if !errors.Is(err, errors.ErrCodeInvalidPathspec) {
					t.Errorf("error code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidPathspec)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePathspec(%q) failed: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParsePathspec(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestPathspecRoundTrip(t *testing.T) {
	specs := []Pathspec{
		{Owner: "octocat", Repository: "ripgrep", Pattern: "rg-*.tar.gz"},
		{Owner: "a", Repository: "b", Pattern: "c"},
	}
	for _, want := range specs {
		got, err := ParsePathspec(want.String(), "")
		if err != nil {
			t.Fatalf("ParsePathspec(%q) failed: %v", want.String(), err)
		}
		if got != want {
			t.Errorf("round trip: got %+v, want %+v", got, want)
		}
		if got.String() != want.Owner+"/"+want.Repository+":"+want.Pattern {
			t.Errorf("String() = %q", got.String())
		}
	}
}

func TestPathspecAsMapKey(t *testing.T) {
	m := map[Pathspec]int{}
	a := Pathspec{Owner: "o", Repository: "r", Pattern: "p"}
	b := Pathspec{Owner: "o", Repository: "r", Pattern: "p"}
	m[a] = 1
	if m[b] != 1 {
		t.Error("structurally equal pathspecs must hash alike")
	}
}
