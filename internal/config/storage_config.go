package config

// Storage selects the persistence backend. The remote store is used only when
// both RemoteStoreURL and RemoteStoreKey are set.
type Storage struct {
	DataFolder      string `env:"FOLDER" envDefault:"./data"`
	LocalStoreFile  string `env:"LOCAL_STORE_FILE" envDefault:"store.json"`
	RemoteStoreURL  string `env:"REMOTE_STORE_URL"`
	RemoteStoreKey  string `env:"REMOTE_STORE_KEY"`
	RemoteStorePath string `env:"REMOTE_STORE_PATH" envDefault:"rest/v1"`
}

var _ StorageConfig = Storage{}

func (s Storage) GetDataFolder() string {
	return s.DataFolder
}

func (s Storage) GetLocalStoreFile() string {
	return s.LocalStoreFile
}

func (s Storage) GetRemoteStoreURL() string {
	return s.RemoteStoreURL
}

func (s Storage) GetRemoteStoreKey() string {
	return s.RemoteStoreKey
}

func (s Storage) GetRemoteStorePath() string {
	return s.RemoteStorePath
}
