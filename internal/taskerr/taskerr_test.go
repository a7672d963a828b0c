package taskerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	base := errors.New("disk on fire")

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"tagged", New(KindParser, base), KindParser},
		{"wrapped tagged", fmt.Errorf("stage: %w", New(KindEmbedder, base)), KindEmbedder},
		{"untagged", base, KindUnknown},
		{"nil", nil, KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewNilPassthrough(t *testing.T) {
	if err := New(KindBroker, nil); err != nil {
		t.Errorf("New with nil cause = %v, want nil", err)
	}
}

func TestUnwrap(t *testing.T) {
	base := errors.New("root cause")
	err := New(KindVectorStore, fmt.Errorf("insert: %w", base))
	if !errors.Is(err, base) {
		t.Error("errors.Is lost the wrapped cause")
	}
}

func TestErrorString(t *testing.T) {
	err := Newf(KindChunker, "section %d", 3)
	if got := err.Error(); got != "chunker: section 3" {
		t.Errorf("Error() = %q", got)
	}
}
