package application

import "context"

// UseCase is what the presentation layer sees of an application service:
// one command in, one result out.
type UseCase[C any, R any] interface {
	Execute(ctx context.Context, cmd C) (R, error)
}

// UseCaseFunc lets a plain function stand in for a UseCase.
type UseCaseFunc[C any, R any] func(ctx context.Context, cmd C) (R, error)

func (f UseCaseFunc[C, R]) Execute(ctx context.Context, cmd C) (R, error) {
	return f(ctx, cmd)
}
