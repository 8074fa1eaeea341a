package backups

import (
	"archive/zip"
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	_ "github.com/lib/pq"

	"github.com/fedsubhq/fedsub/config"
)

// BackupManager drives pg_dump backups of the fedsub database and ships
// them to S3. S3Client is exported so tests can swap in a fake.
type BackupManager struct {
	Config   *config.Configuration
	S3Client s3iface.S3API
}

// NewBackupManager builds a manager from the running configuration,
// including an S3 client when bucket credentials are present.
func NewBackupManager() (*BackupManager, error) {
	conf, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	bm := &BackupManager{Config: conf}

	if conf.S3BucketName != "" {
		awsConfig := &aws.Config{
			Region:      aws.String(conf.S3Region),
			Credentials: credentials.NewStaticCredentials(conf.AwsAccessKeyId, conf.AwsSecretAccessKey, ""),
		}
		if conf.S3Endpoint != "" {
			// custom endpoints (MinIO and friends) need path style addressing
			awsConfig.Endpoint = aws.String(conf.S3Endpoint)
			awsConfig.S3ForcePathStyle = aws.Bool(true)
		}
		sess, err := session.NewSession(awsConfig)
		if err != nil {
			return nil, err
		}
		bm.S3Client = s3.New(sess)
	}

	return bm, nil
}

// BackupToDisk runs pg_dump against the configured database and writes
// the dump under BackupDir/<date>/. It returns the path of the dump
// file.
func (bm *BackupManager) BackupToDisk(ctx context.Context) (string, error) {
	parsedURL, err := url.Parse(bm.Config.DataSource.Dns)
	if err != nil {
		return "", fmt.Errorf("failed to parse datasource DSN: %w", err)
	}
	if (parsedURL.Scheme != "postgres" && parsedURL.Scheme != "postgresql") || parsedURL.Host == "" {
		return "", fmt.Errorf("invalid datasource DSN %q", bm.Config.DataSource.Dns)
	}

	db, err := sql.Open("postgres", bm.Config.DataSource.Dns)
	if err != nil {
		return "", fmt.Errorf("failed to open database connection: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return "", fmt.Errorf("failed to ping database: %w", err)
	}

	var dbSize string
	err = db.QueryRowContext(ctx, "SELECT pg_size_pretty(pg_database_size(current_database()))").Scan(&dbSize)
	if err != nil {
		return "", err
	}
	fmt.Printf("Database size: %s\n", dbSize)

	today := time.Now().Format("2006-01-02")
	currentTime := time.Now().Format("150405")
	backupDir := filepath.Join(bm.Config.BackupDir, today)

	if err := os.MkdirAll(backupDir, os.ModePerm); err != nil {
		return "", err
	}

	dbUser := parsedURL.User.Username()
	dbPassword, _ := parsedURL.User.Password()
	dbHost := parsedURL.Hostname()
	dbPort := parsedURL.Port()
	if dbPort == "" {
		dbPort = "5432"
	}
	dbName := strings.TrimPrefix(parsedURL.Path, "/")
	if dbName == "" {
		dbName = "fedsub"
	}

	backupFilePath := filepath.Join(backupDir, fmt.Sprintf("fedsub-%s-backup.sql", currentTime))
	cmd := exec.CommandContext(ctx, "pg_dump", "-U", dbUser, "-d", dbName, "-f", backupFilePath)
	cmd.Env = append(os.Environ(), "PGHOST="+dbHost, "PGPORT="+dbPort, "PGUSER="+dbUser, "PGPASSWORD="+dbPassword)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "pg_dump failed: %v\n", err)
		fmt.Fprintf(os.Stderr, "pg_dump stderr: %v\n", stderr.String())
		return "", err
	}

	fmt.Printf("Backup successful: %s\n", backupFilePath)
	return backupFilePath, nil
}

// BackupToS3 dumps the database, zips the day's backup directory and
// uploads the archive to the configured bucket.
func (bm *BackupManager) BackupToS3(ctx context.Context) error {
	if _, err := bm.BackupToDisk(ctx); err != nil {
		return fmt.Errorf("failed to backup to disk: %w", err)
	}

	today := time.Now().Format("2006-01-02")
	dirToZip := filepath.Join(bm.Config.BackupDir, today)
	zipFile := today + ".zip"

	if err := zipDir(dirToZip, zipFile); err != nil {
		return err
	}

	if err := bm.uploadToS3(ctx, zipFile, zipFile); err != nil {
		return err
	}

	if err := os.Remove(zipFile); err != nil {
		return err
	}

	fmt.Println("Backup for", today, "zipped and uploaded to S3.")
	return nil
}

func zipDir(srcDir, destZip string) error {
	zipFile, err := os.Create(destZip)
	if err != nil {
		return err
	}
	defer zipFile.Close()

	writer := zip.NewWriter(zipFile)
	defer writer.Close()

	return filepath.Walk(srcDir, func(filePath string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(srcDir, filePath)
		if err != nil {
			return err
		}
		zipFileWriter, err := writer.Create(relPath)
		if err != nil {
			return err
		}

		srcFile, err := os.Open(filePath)
		if err != nil {
			return err
		}
		defer srcFile.Close()

		_, err = io.Copy(zipFileWriter, srcFile)
		return err
	})
}

func (bm *BackupManager) uploadToS3(ctx context.Context, filePath, itemKey string) error {
	if bm.S3Client == nil {
		return fmt.Errorf("no S3 client configured, set s3_bucket_name and credentials")
	}

	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	uploader := s3manager.NewUploaderWithClient(bm.S3Client)
	_, err = uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(bm.Config.S3BucketName),
		Key:    aws.String(itemKey),
		Body:   file,
	})

	return err
}
