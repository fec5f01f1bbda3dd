package mathx

import "golang.org/x/exp/constraints"

// MapLinear maps x from [inMin,inMax] onto [outMin,outMax]. Inputs outside
// the range extrapolate. A degenerate input range returns outMin.
func MapLinear[F constraints.Float](x, inMin, inMax, outMin, outMax F) F {
	if inMax == inMin {
		return outMin
	}
	return (x-inMin)*(outMax-outMin)/(inMax-inMin) + outMin
}
