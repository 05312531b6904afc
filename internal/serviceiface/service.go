package serviceiface

// Service is the lifecycle contract the app manager starts and stops in
// sequence order.
type Service interface {
	Name() string
	Start() error
	Stop() error
}
