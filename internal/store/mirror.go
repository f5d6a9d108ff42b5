package store

import (
	"context"
	"log"

	"github.com/pkg/errors"

	"grower/internal/roster"
)

// StartMirror copies src into dst and then keeps dst current with every
// roster snapshot published through src. The expiry is re-read from src on
// each snapshot since it is not broadcast. It returns once the subscription
// is in place; copying stops when ctx ends.
func StartMirror(ctx context.Context, src, dst Store) error {
	sub, ok := src.(Subscriber)
	if !ok {
		return errors.New("source store does not publish snapshots")
	}

	list, err := src.LoadRoster(ctx)
	if err != nil {
		return errors.Wrap(err, "load source roster")
	}
	if list != nil {
		if err := dst.SaveRoster(ctx, list); err != nil {
			return errors.Wrap(err, "seed backup roster")
		}
	}
	expiry, err := copyExpiry(ctx, src, dst, "")
	if err != nil {
		return err
	}
	log.Printf("mirror seeded: %d students, expiry %q", len(list), expiry)

	return sub.Subscribe(ctx, func(list []roster.Student) {
		if err := dst.SaveRoster(ctx, list); err != nil {
			log.Printf("mirror write failed: %v", err)
			return
		}
		if expiry, err = copyExpiry(ctx, src, dst, expiry); err != nil {
			log.Printf("mirror expiry failed: %v", err)
		}
		log.Printf("mirrored snapshot: %d students", len(list))
	})
}

func copyExpiry(ctx context.Context, src, dst Store, last string) (string, error) {
	expiry, err := src.LoadExpiry(ctx)
	if err != nil {
		return last, errors.Wrap(err, "load source expiry")
	}
	if expiry == "" || expiry == last {
		return last, nil
	}
	if err := dst.SaveExpiry(ctx, expiry); err != nil {
		return last, errors.Wrap(err, "save backup expiry")
	}
	return expiry, nil
}
