package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/continuity/pkg/domain"
)

// End marks the end of every experiment chain. It is a stateless singleton whose
// successor is itself and whose successor cannot be changed.
var End Element = terminal{}

type terminal struct{}

func (terminal) ID() string { return "END" }

func (terminal) Kind() Kind { return KindEnd }

func (terminal) UpdateContext(*domain.Context, *State) {}

func (terminal) HasAction() bool { return false }

func (terminal) Action() Action { return nil }

func (terminal) Next(*State) Element { return End }

func (terminal) SetNextOrFail(Element) error {
	return fmt.Errorf("cannot set next of END: %w", domain.ErrUnsupportedOperation)
}

func (terminal) Count() int { return 0 }

func (terminal) IsEnd() bool { return true }

func (terminal) Render(string) string { return "" }

func (terminal) String() string { return "END" }

// HandleAborted never handles anything: reaching END means nobody could.
func (terminal) HandleAborted(abort *domain.AbortError, st *State) Element {
	st.Logger().Warn("abort reached END unhandled", "element", abort.ElementID, "err", abort.Cause)
	return nil
}

func (terminal) IterateToNext() []Element { return nil }

func (terminal) Scope() Element { return End }

func (terminal) countUntil(Element) int { return 0 }

func (terminal) renderUntil(*strings.Builder, string, int, Element) {}
