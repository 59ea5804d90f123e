package app

import (
	"fmt"

	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// PrintSymbols writes every loaded definition as `<type>.<name> = <json>`,
// sorted by address.
func (a *App) PrintSymbols() error {
	defs := a.Namespace().Definitions()
	for _, def := range defs {
		payload, err := ctyjson.Marshal(def.Value, def.Value.Type())
		if err != nil {
			return fmt.Errorf("render %s: %w", def.Address(), err)
		}
		fmt.Fprintf(a.outW, "%s = %s\n", def.Address(), payload)
	}
	a.logger.Info("Symbols loaded.", "count", len(defs))
	return nil
}
