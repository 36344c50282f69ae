package objectstore

import "go.uber.org/fx"

func provide(store *MinioStore) Store { return store }

// Module provides the S3-compatible object store.
var Module = fx.Module("providers.objectstore",
	fx.Provide(NewMinio),
	fx.Provide(provide),
)
