package inspector

import (
	"fmt"

	"github.com/ldbg-project/ldbg/internal/runtime"
	"github.com/ldbg-project/ldbg/internal/sockbuf"
	"github.com/ldbg-project/ldbg/internal/wire"
)

// ToWireValue translates a runtime.Value into its wire.Value form.
func ToWireValue(v runtime.Value) wire.Value {
	wv := wire.Value{Number: v.Number, Bool: v.Bool, Str: v.Str, Identity: v.Identity}
	switch v.Kind {
	case runtime.KindNil:
		wv.Kind = wire.KindNil
	case runtime.KindBool:
		wv.Kind = wire.KindBool
	case runtime.KindNumber:
		wv.Kind = wire.KindNumber
	case runtime.KindString:
		wv.Kind = wire.KindString
	case runtime.KindTable:
		wv.Kind = wire.KindTable
	case runtime.KindFunction:
		wv.Kind = wire.KindFunction
	case runtime.KindUserdata:
		wv.Kind = wire.KindUserdata
	case runtime.KindLightUserdata:
		wv.Kind = wire.KindLightUserdata
	case runtime.KindThread:
		wv.Kind = wire.KindThread
	}
	return wv
}

// WriteWatchValue emits watch_value(v): a printVar-style header line,
// followed by a kind-specific trailer. Grounded on Debugger.c's w/watch
// response construction (the header is printVar; the trailer fields follow
// it are this project's synthesis of what a useful "watch" reply needs per
// kind, per spec.md §4.5).
func WriteWatchValue(sb *sockbuf.Buf, vm runtime.VM, v runtime.Value) error {
	if err := wire.EncodeValue(sb, ToWireValue(v)); err != nil {
		return err
	}

	hasMeta := 0
	if _, ok := vm.Metatable(v); ok {
		hasMeta = 1
	}

	switch v.Kind {
	case runtime.KindTable:
		if err := sb.Print("%d\n", hasMeta); err != nil {
			return err
		}
		key := runtime.Value{}
		for {
			k, val, ok := vm.Next(v, key)
			if !ok {
				break
			}
			if err := wire.EncodeValue(sb, ToWireValue(k)); err != nil {
				return err
			}
			if err := wire.EncodeValue(sb, ToWireValue(val)); err != nil {
				return err
			}
			key = k
		}
		return nil
	case runtime.KindUserdata:
		n, _ := vm.UserdataLen(v)
		return sb.Print("%d\n%d\n", hasMeta, n)
	case runtime.KindFunction:
		what, src, lineDefined, lastLineDefined, ok := vm.FunctionInfo(v)
		if !ok {
			return fmt.Errorf("inspector: no FunctionInfo for %s", v.Identity)
		}
		return sb.Print("%d\n%s\n%s\n%d\n%d\n", hasMeta, what, src, lineDefined, lastLineDefined)
	case runtime.KindThread:
		status, _ := vm.ThreadStatus(v)
		return sb.Print("%d\n%d\n", hasMeta, status)
	default:
		// number, string, bool, lightuserdata: has_meta only.
		return sb.Print("%d\n", hasMeta)
	}
}
