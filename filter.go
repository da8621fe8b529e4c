package gnc

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/ChristopherRabotin/gokalman"
	kitlog "github.com/go-kit/kit/log"
	"github.com/gonum/matrix/mat64"
	"github.com/gonum/stat/distmv"
)

// FilterDivergenceError reports an unusable measurement update. The predicted
// state is kept and the caller dead-reckons until the next good update.
type FilterDivergenceError struct {
	Cause string
}

func (e FilterDivergenceError) Error() string {
	return fmt.Sprintf("filter divergence: %s", e.Cause)
}

// NavigationFilter is a linear Kalman filter over the 6-vector [r v] with a
// constant-velocity process model and direct state measurements.
type NavigationFilter struct {
	x *mat64.Vector
	P *mat64.SymDense

	processPosStd float64
	processVelStd float64
	measNoise     gokalman.Noise

	skipped int
	logger  kitlog.Logger
}

// NewNavigationFilter builds a filter from the initial position and velocity
// estimates, their variances, and the process and measurement noise standard
// deviations. All noise parameters must be strictly positive.
func NewNavigationFilter(r, v []float64, posVar, velVar, processPosStd, processVelStd, measPosStd, measVelStd float64) (*NavigationFilter, error) {
	if len(r) != 3 || len(v) != 3 {
		return nil, fmt.Errorf("initial estimate must be two 3-vectors")
	}
	for name, val := range map[string]float64{"posVar": posVar, "velVar": velVar, "processPosStd": processPosStd, "processVelStd": processVelStd, "measPosStd": measPosStd, "measVelStd": measVelStd} {
		if val <= 0 {
			return nil, fmt.Errorf("%s must be strictly positive (got %f)", name, val)
		}
	}
	x := mat64.NewVector(6, []float64{r[0], r[1], r[2], v[0], v[1], v[2]})
	P := mat64.NewSymDense(6, nil)
	for i := 0; i < 3; i++ {
		P.SetSym(i, i, posVar)
		P.SetSym(i+3, i+3, velVar)
	}
	Rdiag := make([]float64, 6)
	for i := 0; i < 3; i++ {
		Rdiag[i] = measPosStd * measPosStd
		Rdiag[i+3] = measVelStd * measVelStd
	}
	klog := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stdout))
	klog = kitlog.With(klog, "subsys", "navfilter")
	return &NavigationFilter{
		x:             x,
		P:             P,
		processPosStd: processPosStd,
		processVelStd: processVelStd,
		measNoise:     gokalman.NewNoiseless(mat64.NewSymDense(6, nil), diagSym(Rdiag)),
		logger:        klog,
	}, nil
}

func diagSym(d []float64) *mat64.SymDense {
	m := mat64.NewSymDense(len(d), nil)
	for i, v := range d {
		m.SetSym(i, i, v)
	}
	return m
}

// State returns copies of the position and velocity estimates.
func (kf *NavigationFilter) State() (r, v []float64) {
	r = []float64{kf.x.At(0, 0), kf.x.At(1, 0), kf.x.At(2, 0)}
	v = []float64{kf.x.At(3, 0), kf.x.At(4, 0), kf.x.At(5, 0)}
	return
}

// Covariance returns a copy of the estimate covariance.
func (kf *NavigationFilter) Covariance() *mat64.SymDense {
	out := mat64.NewSymDense(6, nil)
	out.CopySym(kf.P)
	return out
}

// SkippedUpdates returns how many measurement updates were rejected since
// construction or the last Reset.
func (kf *NavigationFilter) SkippedUpdates() int {
	return kf.skipped
}

// Predict propagates the estimate by dt seconds under the constant-velocity
// model x_{k+1} = F x_k, inflating the covariance by the process noise.
func (kf *NavigationFilter) Predict(dt float64) {
	F := gokalman.DenseIdentity(6)
	for i := 0; i < 3; i++ {
		F.Set(i, i+3, dt)
	}
	var Fx mat64.Vector
	Fx.MulVec(F, kf.x)
	kf.x.CopyVec(&Fx)

	var FP, FPFt mat64.Dense
	FP.Mul(F, kf.P)
	FPFt.Mul(&FP, F.T())
	qPos := kf.processPosStd * kf.processPosStd * dt
	qVel := kf.processVelStd * kf.processVelStd * dt
	for i := 0; i < 3; i++ {
		FPFt.Set(i, i, FPFt.At(i, i)+qPos)
		FPFt.Set(i+3, i+3, FPFt.At(i+3, i+3)+qVel)
	}
	// Rounding in F P Fᵀ can leave the off-diagonals asymmetric in the last
	// bit, so average with the transpose as Update does.
	var FPFtSym mat64.Dense
	FPFtSym.Add(&FPFt, FPFt.T())
	FPFtSym.Scale(0.5, &FPFtSym)
	P, err := gokalman.AsSymDense(&FPFtSym)
	if err != nil {
		panic(fmt.Errorf("predicted covariance not symmetric: %s", err))
	}
	kf.P = P
}

// Update incorporates a direct [r v] measurement. On failure the prediction
// is kept untouched and the error is of type FilterDivergenceError.
func (kf *NavigationFilter) Update(z []float64) error {
	if len(z) != 6 {
		return fmt.Errorf("measurement must be a 6-vector (got %d)", len(z))
	}
	if !allFinite(z) {
		kf.skipped++
		return FilterDivergenceError{"measurement contains non-finite components"}
	}
	// H is identity so the innovation covariance is simply P + R.
	R := kf.measNoise.MeasurementMatrix()
	var S mat64.Dense
	S.Add(kf.P, R)
	var Sinv mat64.Dense
	if err := Sinv.Inverse(&S); err != nil {
		kf.skipped++
		kf.logger.Log("level", "warning", "status", "update skipped", "err", err)
		return FilterDivergenceError{"innovation covariance is singular"}
	}
	var K mat64.Dense
	K.Mul(kf.P, &Sinv)

	innov := mat64.NewVector(6, nil)
	zVec := mat64.NewVector(6, z)
	innov.SubVec(zVec, kf.x)
	var Kdy mat64.Vector
	Kdy.MulVec(&K, innov)
	kf.x.AddVec(kf.x, &Kdy)

	// Joseph form keeps the covariance symmetric positive definite.
	var IKH mat64.Dense
	IKH.Sub(gokalman.DenseIdentity(6), &K)
	var PiKH, Pint, KR, KRKt, Pup mat64.Dense
	PiKH.Mul(&IKH, kf.P)
	Pint.Mul(&PiKH, IKH.T())
	KR.Mul(&K, R)
	KRKt.Mul(&KR, K.T())
	Pup.Add(&Pint, &KRKt)
	var PupSym mat64.Dense
	PupSym.Add(&Pup, Pup.T())
	PupSym.Scale(0.5, &PupSym)
	P, err := gokalman.AsSymDense(&PupSym)
	if err != nil {
		kf.skipped++
		return FilterDivergenceError{err.Error()}
	}
	if !allFinite(P.RawSymmetric().Data) {
		kf.skipped++
		return FilterDivergenceError{"updated covariance contains non-finite components"}
	}
	kf.P = P
	return nil
}

// Reset re-centers the filter on the given truth with the given variances.
func (kf *NavigationFilter) Reset(r, v []float64, posVar, velVar float64) {
	for i := 0; i < 3; i++ {
		kf.x.SetVec(i, r[i])
		kf.x.SetVec(i+3, v[i])
	}
	kf.P = mat64.NewSymDense(6, nil)
	for i := 0; i < 3; i++ {
		kf.P.SetSym(i, i, posVar)
		kf.P.SetSym(i+3, i+3, velVar)
	}
	kf.skipped = 0
}

// MeasurementNoise generates synthetic sensor noise for simulated GPS/IMU
// style [r v] observations.
type MeasurementNoise struct {
	dist *distmv.Normal
}

// NewMeasurementNoise returns a noise source with the given per-axis standard
// deviations and RNG (pass nil for the default source).
func NewMeasurementNoise(posStd, velStd float64, src *rand.Rand) (*MeasurementNoise, error) {
	if posStd < 0 || velStd < 0 {
		return nil, fmt.Errorf("noise standard deviations must not be negative")
	}
	σ := mat64.NewSymDense(6, nil)
	for i := 0; i < 3; i++ {
		σ.SetSym(i, i, posStd*posStd)
		σ.SetSym(i+3, i+3, velStd*velStd)
	}
	dist, ok := distmv.NewNormal(make([]float64, 6), σ, src)
	if !ok {
		return nil, fmt.Errorf("measurement covariance is not positive definite")
	}
	return &MeasurementNoise{dist}, nil
}

// Perturb returns z plus one noise draw. z is not modified.
func (n *MeasurementNoise) Perturb(z []float64) []float64 {
	draw := n.dist.Rand(nil)
	out := make([]float64, len(z))
	for i := range z {
		out[i] = z[i] + draw[i]
	}
	return out
}
