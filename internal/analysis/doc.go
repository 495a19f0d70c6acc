// Package analysis turns ensemble output into the quantities the views plot.
//
//   - [Tracker]: running separation of two trajectories and an online
//     Lyapunov estimate fitted over a trailing window
//   - [SectionSampler]: Poincaré and stroboscopic sections, with crossings
//     interpolated inside the step that produced them
//   - [Scan]: bifurcation sweep of a discrete map's parameter
//   - [LyapunovExponent], [LogisticLyapunov]: batch exponent estimates
//   - [PowerSpectrum], [WelchSpectrum]: spectra of a sampled component
//
// # Chaos Detection
//
// A positive estimate indicates sensitive dependence on initial conditions:
//
//	tr, _ := analysis.NewTracker(ens, 0, 1, 1000)
//	for range frames {
//	    ens.Tick(dt, subSteps)
//	    tr.Sample()
//	}
//	lambda, err := tr.EstimateLyapunov(100)
//	if errors.Is(err, dynamo.ErrInsufficientSamples) {
//	    // not yet estimable
//	}
package analysis
