package model

type LikeAction string

const (
	ActionLike   LikeAction = "like"
	ActionUnlike LikeAction = "unlike"
)

func (a LikeAction) Valid() bool {
	return a == ActionLike || a == ActionUnlike
}
