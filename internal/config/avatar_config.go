package config

// Avatar configures the S3-compatible bucket used for uploaded avatars.
type Avatar struct {
	Bucket        string `env:"AVATAR_BUCKET"`
	Region        string `env:"AVATAR_REGION" envDefault:"us-east-1"`
	Endpoint      string `env:"AVATAR_ENDPOINT"`
	AccessKey     string `env:"AVATAR_ACCESS_KEY"`
	SecretKey     string `env:"AVATAR_SECRET_KEY"`
	PublicBaseURL string `env:"AVATAR_PUBLIC_BASE_URL"`
}

var _ AvatarConfig = Avatar{}

func (a Avatar) GetAvatarBucket() string {
	return a.Bucket
}

func (a Avatar) GetAvatarRegion() string {
	return a.Region
}

func (a Avatar) GetAvatarEndpoint() string {
	return a.Endpoint
}

func (a Avatar) GetAvatarAccessKey() string {
	return a.AccessKey
}

func (a Avatar) GetAvatarSecretKey() string {
	return a.SecretKey
}

func (a Avatar) GetAvatarPublicBaseURL() string {
	return a.PublicBaseURL
}
