// Package profiles turns named config profiles into ready-to-use transfer
// options, resolving credentials on the way.
//
// A secret comes from the profile's env var, then the OS keyring, then an
// interactive prompt when a terminal is available.
package profiles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/spf13/afero"
	"github.com/wanjune/yuu-transfer/internal/adapters/aliyunoss"
	"github.com/wanjune/yuu-transfer/internal/adapters/s3store"
	"github.com/wanjune/yuu-transfer/internal/apperr"
	"github.com/wanjune/yuu-transfer/internal/config"
	"github.com/wanjune/yuu-transfer/internal/mirror"
	"github.com/wanjune/yuu-transfer/internal/objectstore"
	"github.com/wanjune/yuu-transfer/internal/ports"
	"github.com/wanjune/yuu-transfer/internal/security"
	"github.com/wanjune/yuu-transfer/internal/sftp"
	"github.com/wanjune/yuu-transfer/internal/transfer"
)

// SecretStore looks up stored secrets. *security.KeyringStore implements it.
type SecretStore interface {
	Get(key string) ([]byte, error)
}

// StoreFactory builds a bucket client for a resolved profile.
type StoreFactory func(ctx context.Context, p config.ObjectStoreProfile, secret string) (ports.ObjectStore, error)

// Options configures a Resolver. Only Config is required.
type Options struct {
	// Config returns the current configuration; it is called on every
	// resolution so a config.Watcher can swap it.
	Config func() *config.Config

	Keyring SecretStore          // nil or a disabled keyring skips the lookup
	Dialog  ports.DialogProvider // nil never prompts
	Cache   *security.SecretCache
	Limiter *security.AuthRateLimiter

	Getenv  func(string) string // nil selects os.Getenv
	Dialer  ports.SSHDialer     // nil selects the real dialer
	LocalFs afero.Fs            // nil selects the OS filesystem
	Stores  StoreFactory        // nil builds Aliyun or S3 clients
}

// Resolver maps profile names to transfer options.
type Resolver struct {
	opts Options
}

// NewResolver returns a Resolver.
func NewResolver(opts Options) *Resolver {
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}
	if opts.Stores == nil {
		opts.Stores = NewStore
	}
	if opts.Cache == nil {
		opts.Cache = security.NewSecretCache(0)
	}
	if opts.Limiter == nil {
		opts.Limiter = security.NewAuthRateLimiter(0, 0, nil)
	}
	return &Resolver{opts: opts}
}

// Config returns the current configuration.
func (r *Resolver) Config() *config.Config {
	return r.opts.Config()
}

// Filter returns the default exclusions from the transfer settings.
func (r *Resolver) Filter() mirror.Filter {
	t := r.Config().Transfer
	return mirror.Filter{
		Names:      slices.Clone(t.ExcludeNames),
		Extensions: slices.Clone(t.ExcludeExtensions),
		Patterns:   slices.Clone(t.ExcludePatterns),
	}
}

// Tuning returns the object store transfer settings.
func (r *Resolver) Tuning() objectstore.Options {
	t := r.Config().Transfer
	return objectstore.Options{
		SingleShotThreshold: t.SingleShotThreshold,
		PartSize:            t.PartSize,
		PageSize:            t.PageSize,
		PartConcurrency:     t.PartConcurrency,
	}
}

// SFTP resolves the named SFTP profile.
func (r *Resolver) SFTP(name string) (transfer.SFTPOptions, error) {
	p, err := r.Config().SFTPProfile(name)
	if err != nil {
		return transfer.SFTPOptions{}, apperr.New(apperr.CodeInvalidArgument, "profile", name, err)
	}

	opts := transfer.SFTPOptions{
		Options: sftp.Options{
			Host:            p.Host,
			Port:            p.Port,
			User:            p.User,
			KeyPath:         p.KeyPath,
			UseAgent:        p.UseAgent,
			KnownHostsPath:  p.KnownHosts,
			InsecureHostKey: p.InsecureHostKey,
			Timeout:         p.Timeout,
			Dialer:          r.opts.Dialer,
		},
		LocalFs: r.opts.LocalFs,
	}

	target := Target(p)
	if locked, remaining := r.opts.Limiter.IsLocked(target); locked {
		return opts, apperr.SFTP("connect", target,
			fmt.Errorf("too many authentication failures, retry in %s", remaining.Round(time.Second)))
	}

	// Without a key or agent a password is the only way in, so it may be
	// prompted for.
	needPassword := p.KeyPath == "" && !p.UseAgent
	opts.Password, err = r.secret(p.PasswordEnv, security.SFTPPasswordKey(p.User, p.Host, p.Port),
		"Password for "+target, needPassword)
	if err != nil {
		return opts, apperr.SFTP("connect", target, err)
	}

	if p.KeyPath != "" {
		opts.KeyPassphrase, err = r.secret(p.PassphraseEnv, security.SFTPPassphraseKey(p.KeyPath), "", false)
		if err != nil {
			return opts, apperr.SFTP("connect", target, err)
		}
	}
	return opts, nil
}

// ObjectStore resolves the named object store profile and builds its client.
func (r *Resolver) ObjectStore(ctx context.Context, name string) (transfer.ObjectStoreOptions, error) {
	p, err := r.Config().ObjectStoreProfile(name)
	if err != nil {
		return transfer.ObjectStoreOptions{}, apperr.New(apperr.CodeInvalidArgument, "profile", name, err)
	}

	var secret string
	if p.AccessKeyID != "" {
		secret, err = r.secret(p.AccessKeySecretEnv, security.ObjectStoreSecretKey(p.AccessKeyID),
			"Access key secret for "+p.AccessKeyID, true)
		if err != nil {
			return transfer.ObjectStoreOptions{}, apperr.ObjectStore("connect", p.Bucket, err)
		}
	}

	store, err := r.opts.Stores(ctx, *p, secret)
	if err != nil {
		return transfer.ObjectStoreOptions{}, apperr.ObjectStore("connect", p.Bucket, err)
	}
	return transfer.ObjectStoreOptions{
		Store:   store,
		Tuning:  r.Tuning(),
		LocalFs: r.opts.LocalFs,
	}, nil
}

// WithSFTP resolves name and runs fn on an open session. Connection
// failures count towards the profile's authentication lockout and drop
// any cached password.
func (r *Resolver) WithSFTP(ctx context.Context, name string, fn func(*transfer.SFTP) error) error {
	opts, err := r.SFTP(name)
	if err != nil {
		return err
	}
	p, _ := r.Config().SFTPProfile(name)
	target := Target(p)

	connected := false
	err = transfer.WithSFTP(ctx, opts, func(t *transfer.SFTP) error {
		connected = true
		r.opts.Limiter.RecordSuccess(target)
		return fn(t)
	})
	if !connected && err != nil {
		r.opts.Limiter.RecordFailure(target)
		r.opts.Cache.Clear(security.SFTPPasswordKey(p.User, p.Host, p.Port))
	}
	return err
}

// WithObjectStore resolves name and runs fn against the bucket.
func (r *Resolver) WithObjectStore(ctx context.Context, name string, fn func(*transfer.ObjectStore) error) error {
	opts, err := r.ObjectStore(ctx, name)
	if err != nil {
		return err
	}
	return transfer.WithObjectStore(ctx, opts, fn)
}

// secret resolves one credential. An empty result with a nil error means
// nothing was configured and prompting was not allowed.
func (r *Resolver) secret(envVar, keyringKey, promptTitle string, mayPrompt bool) (string, error) {
	if envVar != "" {
		if v := r.opts.Getenv(envVar); v != "" {
			return v, nil
		}
	}

	if cached := r.opts.Cache.Get(keyringKey); cached != nil {
		defer security.WipeBytes(cached)
		return string(cached), nil
	}

	if ks := r.opts.Keyring; ks != nil && keyringEnabled(ks) {
		v, err := ks.Get(keyringKey)
		if err != nil {
			slog.Debug("keyring lookup failed",
				slog.String("entry", keyringKey),
				slog.String("error", err.Error()),
			)
		} else if v != nil {
			r.opts.Cache.Set(keyringKey, v)
			defer security.WipeBytes(v)
			return string(v), nil
		}
	}

	if !mayPrompt || r.opts.Dialog == nil || !r.opts.Dialog.Interactive() {
		return "", nil
	}
	v, err := r.opts.Dialog.Secret(promptTitle, "Not found in the environment or keyring")
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	if v == "" {
		return "", errors.New("empty secret")
	}
	r.opts.Cache.Set(keyringKey, []byte(v))
	return v, nil
}

func keyringEnabled(ks SecretStore) bool {
	if e, ok := ks.(interface{ IsEnabled() bool }); ok {
		return e.IsEnabled()
	}
	return true
}

// Target identifies an SFTP profile's server as user@host:port.
func Target(p *config.SFTPProfile) string {
	return fmt.Sprintf("%s@%s:%d", p.User, p.Host, p.Port)
}

// NewStore builds an Aliyun OSS or S3 client for p.
func NewStore(ctx context.Context, p config.ObjectStoreProfile, secret string) (ports.ObjectStore, error) {
	switch p.Provider {
	case config.ProviderS3:
		return s3store.New(ctx, s3store.Options{
			Bucket:          p.Bucket,
			Region:          p.Region,
			Endpoint:        p.Endpoint,
			AccessKeyID:     p.AccessKeyID,
			SecretAccessKey: secret,
			UsePathStyle:    p.PathStyle,
		})
	case config.ProviderAliyun, "":
		var opts []aliyunoss.OptionFunc
		if p.Endpoint != "" {
			opts = append(opts, aliyunoss.WithEndpoint(p.Endpoint))
		}
		if p.InternalEndpoint {
			opts = append(opts, aliyunoss.WithInternalEndpoint())
		}
		if p.PathStyle {
			opts = append(opts, aliyunoss.WithPathStyle())
		}
		cfg := aliyunoss.NewConfig(p.Region, aliyunoss.Credentials{
			AccessKeyID:     p.AccessKeyID,
			AccessKeySecret: secret,
		}, opts...)
		return aliyunoss.New(p.Bucket, cfg)
	default:
		return nil, fmt.Errorf("unknown provider %q", p.Provider)
	}
}
