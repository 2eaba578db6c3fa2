package archive

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"path"
	"strings"
	"time"

	"jxlpress/config"
	"jxlpress/logger"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// SFTP uploads artifacts to a remote directory over SSH. Each Put dials a
// fresh connection.
type SFTP struct {
	addr      string
	remoteDir string
	client    *ssh.ClientConfig
}

// NewSFTP builds an SFTP backend. PrivateKey may be base64 or raw PEM and
// takes precedence over Password.
func NewSFTP(cfg config.Archive) (*SFTP, error) {
	if cfg.Host == "" || cfg.User == "" || cfg.RemoteDir == "" {
		return nil, fmt.Errorf("missing required archive settings: host, user, remote dir")
	}

	var auths []ssh.AuthMethod
	switch {
	case cfg.PrivateKey != "":
		keyBytes, err := base64.StdEncoding.DecodeString(cfg.PrivateKey)
		if err != nil {
			keyBytes = []byte(cfg.PrivateKey)
		}
		signer, err := ssh.ParsePrivateKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		auths = append(auths, ssh.PublicKeys(signer))
	case cfg.Password != "":
		auths = append(auths, ssh.Password(cfg.Password))
	default:
		return nil, fmt.Errorf("no auth method provided; set password or private key")
	}

	port := cfg.Port
	if port == "" {
		port = "22"
	}
	return &SFTP{
		addr:      net.JoinHostPort(cfg.Host, port),
		remoteDir: path.Join(cfg.RemoteDir, strings.Trim(cfg.Prefix, "/")),
		client: &ssh.ClientConfig{
			User:            cfg.User,
			Auth:            auths,
			HostKeyCallback: ssh.InsecureIgnoreHostKey(),
			Timeout:         10 * time.Second,
		},
	}, nil
}

func (b *SFTP) Name() string { return "sftp" }

func (b *SFTP) Close() error { return nil }

func (b *SFTP) Put(ctx context.Context, name string, r io.Reader) error {
	client, closeConn, err := b.connect(ctx)
	if err != nil {
		return err
	}
	defer closeConn()

	if b.remoteDir != "" {
		if err := client.MkdirAll(b.remoteDir); err != nil {
			return fmt.Errorf("ensure remote dir %s: %w", b.remoteDir, err)
		}
	}
	remotePath := path.Join(b.remoteDir, path.Base(name))
	if err := upload(client, remotePath, r); err != nil {
		return err
	}
	logger.Infof("Archived %s to sftp://%s%s", name, b.addr, remotePath)
	return nil
}

// connect dials the server honouring ctx and opens an sftp session on it.
// The returned func tears down both layers.
func (b *SFTP) connect(ctx context.Context) (*sftp.Client, func(), error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", b.addr)
	if err != nil {
		return nil, nil, fmt.Errorf("dial tcp %s: %w", b.addr, err)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, b.addr, b.client)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("ssh handshake with %s: %w", b.addr, err)
	}
	sshClient := ssh.NewClient(sshConn, chans, reqs)
	client, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, nil, fmt.Errorf("open sftp session on %s: %w", b.addr, err)
	}
	return client, func() {
		client.Close()
		sshClient.Close()
	}, nil
}

// upload writes r to remotePath. The remote Close flushes pending writes, so
// its error fails the upload.
func upload(client *sftp.Client, remotePath string, r io.Reader) error {
	f, err := client.Create(remotePath)
	if err != nil {
		return fmt.Errorf("create remote file %s: %w", remotePath, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("write remote file %s: %w", remotePath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close remote file %s: %w", remotePath, err)
	}
	return nil
}
