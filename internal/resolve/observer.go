package resolve

import (
	"github.com/nao1215/waypoint/internal/address"
	"github.com/nao1215/waypoint/internal/model"
)

// Observer receives cascade events. Implementations must be safe for
// concurrent use and should not block; they are called from the goroutine
// running the cascade.
type Observer interface {
	// ObserveAttempt is called after each invoked strategy returns.
	ObserveAttempt(addr address.Address, attempt model.Attempt)

	// ObserveSkip is called for each strategy that did not apply.
	ObserveSkip(addr address.Address, strategy string)

	// ObserveResult is called once per cascade, and once per cache hit or
	// search redirect.
	ObserveResult(result model.Result)
}

// ObserverFuncs adapts optional functions to the Observer interface.
// Nil fields are ignored.
type ObserverFuncs struct {
	Attempt func(addr address.Address, attempt model.Attempt)
	Skip    func(addr address.Address, strategy string)
	Result  func(result model.Result)
}

// ObserveAttempt implements Observer.
func (f ObserverFuncs) ObserveAttempt(addr address.Address, attempt model.Attempt) {
	if f.Attempt != nil {
		f.Attempt(addr, attempt)
	}
}

// ObserveSkip implements Observer.
func (f ObserverFuncs) ObserveSkip(addr address.Address, strategy string) {
	if f.Skip != nil {
		f.Skip(addr, strategy)
	}
}

// ObserveResult implements Observer.
func (f ObserverFuncs) ObserveResult(result model.Result) {
	if f.Result != nil {
		f.Result(result)
	}
}

type observers []Observer

func (os observers) attempt(addr address.Address, a model.Attempt) {
	for _, o := range os {
		o.ObserveAttempt(addr, a)
	}
}

func (os observers) skip(addr address.Address, strategy string) {
	for _, o := range os {
		o.ObserveSkip(addr, strategy)
	}
}

func (os observers) result(r model.Result) {
	for _, o := range os {
		o.ObserveResult(r)
	}
}
