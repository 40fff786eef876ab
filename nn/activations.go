package nn

import "math"

const dirichletHeadScale = 100.0

func activate(v float64, t ActivationType) float64 {
	switch t {
	case ActivationReLU:
		if v < 0 {
			return 0
		}
		return v
	case ActivationLeakyReLU:
		if v < 0 {
			return v * 0.1
		}
		return v
	case ActivationSigmoid:
		return 1.0 / (1.0 + math.Exp(-v))
	case ActivationTanh:
		return math.Tanh(v)
	case ActivationDirichletHead:
		return 1.0 + dirichletHeadScale/(1.0+math.Exp(-v))
	default:
		return v
	}
}

// activateDerivative returns df/dv evaluated at the pre-activation v.
func activateDerivative(v float64, t ActivationType) float64 {
	switch t {
	case ActivationReLU:
		if v < 0 {
			return 0
		}
		return 1
	case ActivationLeakyReLU:
		if v < 0 {
			return 0.1
		}
		return 1
	case ActivationSigmoid:
		s := 1.0 / (1.0 + math.Exp(-v))
		return s * (1 - s)
	case ActivationTanh:
		th := math.Tanh(v)
		return 1 - th*th
	case ActivationDirichletHead:
		s := 1.0 / (1.0 + math.Exp(-v))
		return dirichletHeadScale * s * (1 - s)
	default:
		return 1
	}
}
