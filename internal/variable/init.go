// Copyright 2025 Weft ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package variable

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/weft-ml/weft/internal/tensor"
)

// Zeros initializes to all zeros. Commonly used for biases.
func Zeros[B tensor.Backend]() Initializer[B] {
	return func(shape tensor.Shape, b B) *tensor.Tensor[float32, B] {
		return tensor.Zeros[float32](shape, b)
	}
}

// Ones initializes to all ones.
func Ones[B tensor.Backend]() Initializer[B] {
	return func(shape tensor.Shape, b B) *tensor.Tensor[float32, B] {
		return tensor.Ones[float32](shape, b)
	}
}

// Constant initializes every element to v.
func Constant[B tensor.Backend](v float32) Initializer[B] {
	return func(shape tensor.Shape, b B) *tensor.Tensor[float32, B] {
		return tensor.Full[float32](shape, v, b)
	}
}

// RandomUniform initializes from U(minVal, maxVal).
func RandomUniform[B tensor.Backend](minVal, maxVal float64, seed uint64) Initializer[B] {
	return func(shape tensor.Shape, b B) *tensor.Tensor[float32, B] {
		u := distuv.Uniform{Min: minVal, Max: maxVal, Src: rand.NewSource(seed)}
		t := tensor.Zeros[float32](shape, b)
		data := t.Data()
		for i := range data {
			data[i] = float32(u.Rand())
		}
		return t
	}
}

// GlorotUniform initializes from U(-limit, limit) with
// limit = sqrt(6 / (fanIn + fanOut)). This keeps activation variance
// stable across layers.
func GlorotUniform[B tensor.Backend](seed uint64) Initializer[B] {
	return func(shape tensor.Shape, b B) *tensor.Tensor[float32, B] {
		fanIn, fanOut := computeFans(shape)
		limit := math.Sqrt(6.0 / float64(fanIn+fanOut))
		u := distuv.Uniform{Min: -limit, Max: limit, Src: rand.NewSource(seed)}
		t := tensor.Zeros[float32](shape, b)
		data := t.Data()
		for i := range data {
			data[i] = float32(u.Rand())
		}
		return t
	}
}

// TruncatedNormal initializes from N(mean, stddev) with samples further
// than two standard deviations from the mean redrawn.
func TruncatedNormal[B tensor.Backend](mean, stddev float64, seed uint64) Initializer[B] {
	return func(shape tensor.Shape, b B) *tensor.Tensor[float32, B] {
		n := distuv.Normal{Mu: mean, Sigma: stddev, Src: rand.NewSource(seed)}
		t := tensor.Zeros[float32](shape, b)
		data := t.Data()
		for i := range data {
			x := n.Rand()
			for math.Abs(x-mean) > 2*stddev {
				x = n.Rand()
			}
			data[i] = float32(x)
		}
		return t
	}
}

// computeFans derives fan-in/fan-out from a weight shape.
func computeFans(shape tensor.Shape) (fanIn, fanOut int) {
	switch len(shape) {
	case 0:
		return 1, 1
	case 1:
		return shape[0], shape[0]
	case 2:
		return shape[0], shape[1]
	default:
		receptive := 1
		for _, d := range shape[:len(shape)-2] {
			receptive *= d
		}
		return shape[len(shape)-2] * receptive, shape[len(shape)-1] * receptive
	}
}
