package extract

import "errors"

var (
	errDASNoRoot     = errors.New("missing Attributes root block")
	errDASUnbalanced = errors.New("unbalanced braces")
)

type errDASRoot string

func (e errDASRoot) Error() string {
	return "unexpected root block " + string(e) + ", want Attributes"
}
