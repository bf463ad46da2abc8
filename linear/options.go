package linear

// Option is a function that configures a Regressor
type Option func(*Regressor)

// WithModelType sets the penalty: "linear", "ridge", "lasso" or "elastic"
func WithModelType(modelType string) Option {
	return func(r *Regressor) {
		r.ModelType = modelType
	}
}

// WithAlpha sets the regularization strength
func WithAlpha(alpha float64) Option {
	return func(r *Regressor) {
		r.Alpha = alpha
	}
}

// WithL1Ratio sets the elastic-net mixing parameter (0 = ridge, 1 = lasso)
func WithL1Ratio(l1Ratio float64) Option {
	return func(r *Regressor) {
		r.L1Ratio = l1Ratio
	}
}

// WithFitIntercept sets whether to calculate the intercept
func WithFitIntercept(fit bool) Option {
	return func(r *Regressor) {
		r.FitIntercept = fit
	}
}

// WithMaxIter sets the coordinate descent iteration limit
func WithMaxIter(n int) Option {
	return func(r *Regressor) {
		r.MaxIter = n
	}
}

// WithTol sets the tolerance for the optimization
func WithTol(tol float64) Option {
	return func(r *Regressor) {
		r.Tol = tol
	}
}
