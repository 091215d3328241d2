package mosaic

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"crawshaw.io/sqlite/sqlitex"
	"github.com/maxhully/mosaic/avatargen"
	"github.com/rs/zerolog"
)

// AvatarJob asks for a new avatar for a user. An empty Seed means "use the user's
// name", which is how default avatars are made.
type AvatarJob struct {
	UserName string
	Seed     string
}

func (j AvatarJob) seed() string {
	if j.Seed == "" {
		return j.UserName
	}
	return j.Seed
}

// AvatarGenerator is what a worker needs from *avatargen.Generator.
type AvatarGenerator interface {
	GenerateAvatar(rng *rand.Rand, fileName, filePath string) ([]byte, error)
}

// AvatarWorker generates avatars and stores them as uploads. It handles one job at a
// time; start more workers if you need more throughput.
type AvatarWorker struct {
	DB        *DB
	Generator AvatarGenerator
	// Generated PNGs are also written here, as <user name>_default.png
	OutDir string
	Logger zerolog.Logger
}

// Process generates the avatar for job and makes it the user's avatar. When the
// mosaic can't be grown the database isn't touched and the error wraps
// avatargen.ErrRoomExhausted. Retrying with the same seed won't help.
func (w *AvatarWorker) Process(ctx context.Context, job AvatarJob) (err error) {
	conn := w.DB.Get(ctx)
	if conn == nil {
		return errors.New("couldn't get a connection")
	}
	defer w.DB.Put(conn)

	user, err := GetUserByName(conn, job.UserName)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("no user named %q", job.UserName)
	}

	contents, err := w.Generator.GenerateAvatar(avatargen.NewRand(job.seed()), user.Name, w.OutDir)
	if err != nil {
		return fmt.Errorf("couldn't generate avatar for %s: %w", user.Name, err)
	}

	defer sqlitex.Save(conn)(&err)
	uploadID, err := SaveUpload(conn, user.Name+"_default.png", "image/png", contents)
	if err != nil {
		return err
	}
	if err = SetUserAvatar(conn, user.UserID, uploadID); err != nil {
		return err
	}
	w.Logger.Info().Str("user", user.Name).Int64("upload_id", uploadID).Msg("avatar saved")
	return nil
}

// Run processes jobs in order until jobs is closed or ctx is done. Failed jobs are
// logged, and sent on the returned channel if its one-slot buffer is free. The channel
// is closed once Run is done.
func (w *AvatarWorker) Run(ctx context.Context, jobs <-chan AvatarJob) <-chan error {
	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		for {
			select {
			case <-ctx.Done():
				return
			case job, ok := <-jobs:
				if !ok {
					return
				}
				if err := w.Process(ctx, job); err != nil {
					w.Logger.Error().Err(err).Str("user", job.UserName).Msg("avatar job failed")
					select {
					case errChan <- err:
					default:
					}
				}
			}
		}
	}()
	return errChan
}

// Backfill gives a default avatar to every user that doesn't have one and returns how
// many it made. A user whose default avatar can't be grown is skipped: the seed is their
// name, so trying again would fail the same way. Skipped users are reported in the
// returned error (it wraps avatargen.ErrRoomExhausted). Any other failure stops the
// backfill.
func (w *AvatarWorker) Backfill(ctx context.Context) (int, error) {
	conn := w.DB.Get(ctx)
	if conn == nil {
		return 0, errors.New("couldn't get a connection")
	}
	users, err := ListUsersWithoutAvatar(conn)
	w.DB.Put(conn)
	if err != nil {
		return 0, err
	}
	done := 0
	var skipped []error
	for i := range users {
		w.Logger.Info().Str("user", users[i].Name).Msg("backfilling avatar")
		err := w.Process(ctx, AvatarJob{UserName: users[i].Name})
		if errors.Is(err, avatargen.ErrRoomExhausted) {
			w.Logger.Warn().Err(err).Str("user", users[i].Name).Msg("skipping user")
			skipped = append(skipped, err)
			continue
		}
		if err != nil {
			return done, errors.Join(append(skipped, err)...)
		}
		done++
	}
	return done, errors.Join(skipped...)
}
