package remote

import "github.com/pkg/errors"

// MethodConfig is the method-agnostic configuration surface every remote
// shares, plus the fixed fields each method reads (Root for local;
// Server, Login, Password, KeyFile for ssh; Profile, Region, Bucket,
// Prefix for s3). Config
// resolves this into a concrete Method via the registry below, in place
// of the dynamic entry-point discovery an earlier design used: methods
// are a fixed, explicit set known at program start.
type MethodConfig struct {
	Method   string
	Includes []string
	Excludes []string

	Root string

	Server   string
	Login    string
	Password string
	KeyFile  string

	Profile string
	Region  string
	Bucket  string
	Prefix  string
}

// New builds a Method from a MethodConfig, dispatching on its Method field.
func New(c MethodConfig) (Method, error) {
	switch c.Method {
	case "local":
		return NewLocal(LocalConfig{Root: c.Root, Includes: c.Includes, Excludes: c.Excludes}), nil
	case "ssh":
		return NewSSH(SSHConfig{
			Server:   c.Server,
			Login:    c.Login,
			Password: c.Password,
			KeyFile:  c.KeyFile,
			Root:     c.Root,
			Includes: c.Includes,
			Excludes: c.Excludes,
		}), nil
	case "s3":
		return NewS3(S3Config{
			Profile:  c.Profile,
			Region:   c.Region,
			Bucket:   c.Bucket,
			Prefix:   c.Prefix,
			Includes: c.Includes,
			Excludes: c.Excludes,
		}), nil
	default:
		return nil, errors.Errorf("remote: unknown method %q", c.Method)
	}
}
