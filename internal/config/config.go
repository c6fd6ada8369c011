package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	HTTPPort string `env:"HTTP_PORT" envDefault:"8080"`

	// sqlite | mysql | postgres | mongo | memory
	DBType     string `env:"DBType" envDefault:"sqlite"`
	DSNURL     string `env:"DSN_URL" envDefault:""`
	DBUser     string `env:"DBUser" envDefault:""`
	DBPassword string `env:"DBPassword" envDefault:""`
	DBAddr     string `env:"DBAddr" envDefault:""`
	DBName     string `env:"DBName" envDefault:"kaartmodellen"`
	DBPath     string `env:"DBPath" envDefault:"datas/kaartmodellen.db"`
	DBPort     string `env:"DBPort" envDefault:"3306"`

	MongoURI      string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"kaartmodellen"`

	SeedDemoDealers bool `env:"SEED_DEMO_DEALERS" envDefault:"false"`

	StorageType          string `env:"STORAGE_TYPE" envDefault:"local"`
	StorageLocalDir      string `env:"STORAGE_LOCAL_DIR" envDefault:"datas/images"`
	StoragePublicBaseURL string `env:"STORAGE_PUBLIC_BASE_URL" envDefault:"http://localhost:8080/files"`

	// 生成图片镜像到对象存储，避免服务商临时链接过期
	ImageMirrorEnabled bool `env:"IMAGE_MIRROR_ENABLED" envDefault:"false"`

	// S3 兼容存储配置
	StorageS3Region          string `env:"STORAGE_S3_REGION"`
	StorageS3Bucket          string `env:"STORAGE_S3_BUCKET"`
	StorageS3Prefix          string `env:"STORAGE_S3_PREFIX"`
	StorageS3Endpoint        string `env:"STORAGE_S3_ENDPOINT"`
	StorageS3AccessKeyID     string `env:"STORAGE_S3_ACCESS_KEY_ID"`
	StorageS3SecretAccessKey string `env:"STORAGE_S3_SECRET_ACCESS_KEY"`
	StorageS3SessionToken    string `env:"STORAGE_S3_SESSION_TOKEN"`
	StorageS3ForcePathStyle  bool   `env:"STORAGE_S3_FORCE_PATH_STYLE" envDefault:"false"`

	// 阿里云 OSS 存储配置
	StorageOSSEndpoint        string `env:"STORAGE_OSS_ENDPOINT"`
	StorageOSSBucket          string `env:"STORAGE_OSS_BUCKET"`
	StorageOSSPrefix          string `env:"STORAGE_OSS_PREFIX"`
	StorageOSSAccessKeyID     string `env:"STORAGE_OSS_ACCESS_KEY_ID"`
	StorageOSSAccessKeySecret string `env:"STORAGE_OSS_ACCESS_KEY_SECRET"`

	// 腾讯云 COS 存储配置
	StorageCOSBucketURL string `env:"STORAGE_COS_BUCKET_URL"`
	StorageCOSPrefix    string `env:"STORAGE_COS_PREFIX"`
	StorageCOSSecretID  string `env:"STORAGE_COS_SECRET_ID"`
	StorageCOSSecretKey string `env:"STORAGE_COS_SECRET_KEY"`

	// Cloudflare R2 存储配置
	StorageR2AccountID       string `env:"STORAGE_R2_ACCOUNT_ID"`
	StorageR2Endpoint        string `env:"STORAGE_R2_ENDPOINT"`
	StorageR2Region          string `env:"STORAGE_R2_REGION" envDefault:"auto"`
	StorageR2Bucket          string `env:"STORAGE_R2_BUCKET"`
	StorageR2Prefix          string `env:"STORAGE_R2_PREFIX"`
	StorageR2AccessKeyID     string `env:"STORAGE_R2_ACCESS_KEY_ID"`
	StorageR2SecretAccessKey string `env:"STORAGE_R2_SECRET_ACCESS_KEY"`

	// 图像生成服务商
	OpenAIAPIKey          string `env:"OPENAI_API_KEY" envDefault:""`
	OpenAIImageEndpoint   string `env:"OPENAI_IMAGE_ENDPOINT" envDefault:"https://api.openai.com/v1/images/generations"`
	GetImgAPIKey          string `env:"GETIMG_API_KEY" envDefault:""`
	GetImgEndpoint        string `env:"GETIMG_ENDPOINT" envDefault:"https://api.getimg.ai/v1/generation/text-to-image"`
	ProviderTimeoutSecond int    `env:"PROVIDER_TIMEOUT_SECONDS" envDefault:"120"`

	GenerationTimeoutSecond int `env:"GENERATION_TIMEOUT_SECONDS" envDefault:"300"`
	GenerationConcurrency   int `env:"GENERATION_CONCURRENCY" envDefault:"2"`
}

// ProviderTimeout 单次服务商 HTTP 调用超时
func (c Config) ProviderTimeout() time.Duration {
	if c.ProviderTimeoutSecond <= 0 {
		return 120 * time.Second
	}
	return time.Duration(c.ProviderTimeoutSecond) * time.Second
}

// GenerationTimeout 单个阶段完整生成（调用服务商、镜像、落库）的超时
func (c Config) GenerationTimeout() time.Duration {
	if c.GenerationTimeoutSecond <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.GenerationTimeoutSecond) * time.Second
}

// LoadDotEnv 加载 .env 文件（可选），文件不存在时忽略
func LoadDotEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

func ParseConfig() (Config, error) {
	if err := LoadDotEnv(); err != nil {
		logrus.WithError(err).Warn("failed to load .env file")
	}
	var Conf Config
	err := env.Parse(&Conf)
	if err != nil {
		logrus.WithError(err).Error("env.Parse error")
		return Config{}, err
	}
	logrus.Debugf("%#v\n", Conf)
	return Conf, nil
}
