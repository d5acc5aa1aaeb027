package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jlaffaye/ftp"
	"go.uber.org/multierr"
)

const defaultFTPTimeout = 30 * time.Second

type ftpConn interface {
	Login(user, password string) error
	Stor(path string, r io.Reader) error
	Quit() error
}

type ftpDialer func(ctx context.Context, addr string, timeout time.Duration) (ftpConn, error)

// FTPUploader stores export files on an FTP server.
type FTPUploader struct {
	timeout time.Duration
	dial    ftpDialer
}

func NewFTPUploader(timeout time.Duration) *FTPUploader {
	if timeout <= 0 {
		timeout = defaultFTPTimeout
	}
	return &FTPUploader{timeout: timeout, dial: dialFTP}
}

func dialFTP(ctx context.Context, addr string, timeout time.Duration) (ftpConn, error) {
	conn, err := ftp.Dial(addr, ftp.DialWithTimeout(timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Upload connects, authenticates and stores the file. The connection is
// closed on every path once established.
func (u *FTPUploader) Upload(ctx context.Context, settings FTPSettings, localPath string) (err error) {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open export file: %w", err)
	}
	defer file.Close()

	conn, err := u.dial(ctx, settings.Address(), u.timeout)
	if err != nil {
		return fmt.Errorf("connect %s: %w", settings.Address(), err)
	}
	defer func() {
		if quitErr := conn.Quit(); quitErr != nil {
			err = multierr.Append(err, fmt.Errorf("close ftp connection: %w", quitErr))
		}
	}()

	if err := conn.Login(settings.User, settings.Password); err != nil {
		return fmt.Errorf("ftp login: %w", err)
	}
	if err := conn.Stor(settings.RemotePath, file); err != nil {
		return fmt.Errorf("ftp store %s: %w", settings.RemotePath, err)
	}
	return nil
}
