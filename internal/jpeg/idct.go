package jpeg

import "math"

// scale factors of the AAN factorisation, folded into the input
const (
	is0 = 2.828427124746190097603377448419
	is1 = 3.923141121612921796504728944537
	is2 = 3.695518130045147024512732757587
	is3 = 3.325878449210180948315153510472
	is4 = 2.828427124746190097603377448419
	is5 = 2.222280932078408898971323255794
	is6 = 1.530733729460359086913839936122
	is7 = 0.780361288064513071393139473908

	ia1 = 1.414213562373095048801688724209
	a2  = 0.541196100146196984399723205367
	ia3 = 1.414213562373095048801688724209
	a4  = 1.306562964876376527856643173427
	a5  = 0.382683432365089771728459984030
)

// idct8 runs the one-dimensional inverse transform over the 8 values at
// in[off], in[off+step], ... and writes them to out with the same layout.
func idct8(in *[64]float64, off, step int, out *[64]float64) {
	v15 := in[off] * is0
	v26 := in[off+step] * is1
	v21 := in[off+2*step] * is2
	v28 := in[off+3*step] * is3
	v16 := in[off+4*step] * is4
	v25 := in[off+5*step] * is5
	v22 := in[off+6*step] * is6
	v27 := in[off+7*step] * is7

	v19 := (v25 - v28) * 0.5
	v20 := (v26 - v27) * 0.5
	v23 := (v26 + v27) * 0.5
	v24 := (v25 + v28) * 0.5

	v7 := (v23 + v24) * 0.5
	v11 := (v21 + v22) * 0.5
	v13 := (v23 - v24) * 0.5
	v17 := (v21 - v22) * 0.5

	v8 := (v15 + v16) * 0.5
	v9 := (v15 - v16) * 0.5

	// 1/(a2*a5 - a2*a4 - a4*a5) is -1
	term := (v19 - v20) * a5
	v12 := term - v19*a4
	v14 := v20*a2 - term

	v6 := v14 - v7
	v5 := v13*ia3 - v6
	v4 := -v5 - v12
	v10 := v17*ia1 - v11

	v0 := (v8 + v11) * 0.5
	v1 := (v9 + v10) * 0.5
	v2 := (v9 - v10) * 0.5
	v3 := (v8 - v11) * 0.5

	out[off] = (v0 + v7) * 0.5
	out[off+step] = (v1 + v6) * 0.5
	out[off+2*step] = (v2 + v5) * 0.5
	out[off+3*step] = (v3 + v4) * 0.5
	out[off+4*step] = (v3 - v4) * 0.5
	out[off+5*step] = (v2 - v5) * 0.5
	out[off+6*step] = (v1 - v6) * 0.5
	out[off+7*step] = (v0 - v7) * 0.5
}

// idct transforms a dequantized block in natural order and stores the level
// shifted samples in dst, rows stride bytes apart.
func idct(blk *[64]int32, dst []byte, stride int) {
	var in, tmp, out [64]float64
	for i, v := range blk {
		in[i] = float64(v)
	}
	for col := 0; col < 8; col++ {
		idct8(&in, col, 8, &tmp)
	}
	for row := 0; row < 8; row++ {
		idct8(&tmp, row*8, 1, &out)
	}
	for y := 0; y < 8; y++ {
		line := dst[y*stride : y*stride+8]
		for x := range line {
			line[x] = byte(clamp(math.Round(out[y*8+x])+128, 0, 255))
		}
	}
}
