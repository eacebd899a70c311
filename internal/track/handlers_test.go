package track

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestStatusErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrAuthMissing, fiber.StatusConflict},
		{ErrNotConnected, fiber.StatusConflict},
		{ErrPermissionDenied, fiber.StatusConflict},
		{fmt.Errorf("%w: gps cold start", ErrLocationFetch), fiber.StatusBadGateway},
		{errors.New("unexpected"), fiber.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := statusError(c.err).Code; got != c.want {
			t.Fatalf("%v: expected %d, got %d", c.err, c.want, got)
		}
	}
}
