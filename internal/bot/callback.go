// Package bot holds the two update handlers: the admin console and the
// customer storefront.
package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ActionKind tags an inline-button payload. Every callback is decoded into an
// Action at the boundary; the handlers switch on the tag, never on raw
// payload strings.
type ActionKind string

const (
	ActionCategory        ActionKind = "cat"
	ActionProduct         ActionKind = "product"
	ActionAddToCart       ActionKind = "add_to_cart"
	ActionDeleteProduct   ActionKind = "delete_product"
	ActionDeleteCategory  ActionKind = "delete_category"
	ActionDeletePromotion ActionKind = "delete_promotion"
	ActionDeletePromoCode ActionKind = "delete_promo_code"
	ActionDeleteMailing   ActionKind = "delete_mailing"
	ActionDeleteTicket    ActionKind = "delete_ticket"
	ActionClearCart       ActionKind = "clear_cart"
	ActionBlockUser       ActionKind = "block_user"
	ActionToggleKeyboard  ActionKind = "toggle_keyboard"
	ActionBackToMain      ActionKind = "back_to_main"
)

// decode order matters: longer kinds first so "delete_product" is never
// misread as "product".
var actionKinds = []ActionKind{
	ActionDeletePromoCode,
	ActionDeletePromotion,
	ActionDeleteCategory,
	ActionDeleteProduct,
	ActionDeleteMailing,
	ActionDeleteTicket,
	ActionToggleKeyboard,
	ActionBackToMain,
	ActionClearCart,
	ActionAddToCart,
	ActionBlockUser,
	ActionProduct,
	ActionCategory,
}

var ErrBadCallback = errors.New("bot: malformed callback payload")

type Action struct {
	Kind ActionKind
	ID   int64
	// Extra carries the second id of two-id payloads, e.g. the ticket id of
	// a block_user button.
	Extra int64
}

func (a Action) Encode() string {
	switch {
	case a.Extra != 0:
		return fmt.Sprintf("%s_%d_%d", a.Kind, a.ID, a.Extra)
	case a.ID != 0:
		return fmt.Sprintf("%s_%d", a.Kind, a.ID)
	default:
		return string(a.Kind)
	}
}

func DecodeAction(data string) (Action, error) {
	for _, kind := range actionKinds {
		prefix := string(kind)
		if data == prefix {
			return Action{Kind: kind}, nil
		}
		if !strings.HasPrefix(data, prefix+"_") {
			continue
		}
		rest := data[len(prefix)+1:]
		parts := strings.Split(rest, "_")
		switch len(parts) {
		case 1:
			id, err := strconv.ParseInt(parts[0], 10, 64)
			if err != nil {
				return Action{}, fmt.Errorf("%w: %q", ErrBadCallback, data)
			}
			return Action{Kind: kind, ID: id}, nil
		case 2:
			id, err := strconv.ParseInt(parts[0], 10, 64)
			if err != nil {
				return Action{}, fmt.Errorf("%w: %q", ErrBadCallback, data)
			}
			extra, err := strconv.ParseInt(parts[1], 10, 64)
			if err != nil {
				return Action{}, fmt.Errorf("%w: %q", ErrBadCallback, data)
			}
			return Action{Kind: kind, ID: id, Extra: extra}, nil
		default:
			return Action{}, fmt.Errorf("%w: %q", ErrBadCallback, data)
		}
	}
	return Action{}, fmt.Errorf("%w: %q", ErrBadCallback, data)
}
