package storage

import "mapserve/internal/ports"

// Provider is the archive storage contract shared by the API and the worker.
// It is an alias to ports.StorageProvider to keep call-sites simple.
type Provider = ports.StorageProvider
