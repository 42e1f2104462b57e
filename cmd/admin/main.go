package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"mailcanvas/internal/auth"
	"mailcanvas/internal/config"
	"mailcanvas/internal/database"
	"mailcanvas/internal/email"
	"mailcanvas/internal/storage"
)

func main() {
	var (
		username     = flag.String("username", "", "初始管理员用户名（与 --purge-user-id 二选一）")
		purgeUserID  = flag.Uint("purge-user-id", 0, "删除指定用户及其全部数据（草稿、模板、资产与对象存储内容）")
		seedTemplate = flag.Bool("seed-template", true, "是否创建默认公开模板")
		dbHost       = flag.String("db-host", "", "数据库 Host（可选，默认读 DATABASE_HOST）")
		dbPort       = flag.Int("db-port", 0, "数据库 Port（可选，默认读 DATABASE_PORT）")
		dbName       = flag.String("db-name", "", "数据库名（可选，默认读 POSTGRES_DB）")
		dbUser       = flag.String("db-user", "", "数据库用户（可选，默认读 POSTGRES_USER）")
		dbPass       = flag.String("db-password", "", "数据库密码（可选，默认读 POSTGRES_PASSWORD）")
		sslMode      = flag.String("db-sslmode", "", "数据库 SSLMODE（可选，默认读 DATABASE_SSLMODE）")
	)
	flag.Parse()

	if *purgeUserID > 0 {
		if err := purgeUser(uint(*purgeUserID)); err != nil {
			log.Fatalf("purge user %d: %v", *purgeUserID, err)
		}
		fmt.Printf("已删除用户 %d 及其全部数据。\n", *purgeUserID)
		return
	}

	u := strings.TrimSpace(*username)
	if u == "" {
		log.Fatal("missing required flag: --username (or --purge-user-id)")
	}

	dbCfg, err := loadDatabaseConfig(*dbHost, *dbPort, *dbName, *dbUser, *dbPass, *sslMode)
	if err != nil {
		log.Fatalf("load database config: %v", err)
	}

	db, err := database.InitDatabase(dbCfg)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}

	var existing database.User
	switch err := db.Where("username = ?", u).First(&existing).Error; {
	case err == nil:
		log.Fatalf("user %q already exists", u)
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		log.Fatalf("query user: %v", err)
	}

	password, err := generateRandomPassword(24)
	if err != nil {
		log.Fatalf("generate password: %v", err)
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	user := database.User{
		Username:     u,
		PasswordHash: hashed,
	}
	if err := db.Create(&user).Error; err != nil {
		log.Fatalf("create user: %v", err)
	}

	if *seedTemplate {
		if err := seedStarterTemplate(db, user.ID); err != nil {
			log.Fatalf("seed starter template: %v", err)
		}
		fmt.Println("已创建默认公开模板 \"Welcome newsletter\"")
	}

	fmt.Printf("已创建初始管理员账号：\n")
	fmt.Printf("用户名: %s\n", u)
	fmt.Printf("初始密码: %s\n", password)
	fmt.Printf("提示：请立即登录并修改密码（该密码仅显示一次）。\n")
}

// seedStarterTemplate 创建一份所有用户可见的起步模板。
// 已存在同名公开模板时跳过。
func seedStarterTemplate(db *gorm.DB, ownerID uint) error {
	const title = "Welcome newsletter"

	var existing database.Template
	switch err := db.Where("title = ? AND is_public = ?", title, true).First(&existing).Error; {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return err
	}

	doc := email.Document{Style: email.DefaultStyle}
	doc, _ = email.Place(doc, email.Placement{Section: email.SectionHeader, Index: 0, Type: email.TypeLogo})
	doc, _ = email.Place(doc, email.Placement{Section: email.SectionBody, Index: 0, Type: email.TypeHeading})
	doc, _ = email.Place(doc, email.Placement{Section: email.SectionBody, Index: 1, Type: email.TypeParagraph})
	doc, _ = email.Place(doc, email.Placement{Section: email.SectionBody, Index: 2, Type: email.TypeLayout, Columns: 2})
	doc, _ = email.Place(doc, email.Placement{Section: email.SectionBody, Index: 3, Type: email.TypeButton})
	doc, _ = email.Place(doc, email.Placement{Section: email.SectionFooter, Index: 0, Type: email.TypeDivider})
	doc, _ = email.Place(doc, email.Placement{Section: email.SectionFooter, Index: 1, Type: email.TypeSocial})

	markup, err := json.Marshal(email.Serialize(doc))
	if err != nil {
		return err
	}
	style, err := json.Marshal(doc.Style)
	if err != nil {
		return err
	}

	return db.Create(&database.Template{
		Title:    title,
		Markup:   datatypes.JSON(markup),
		Style:    datatypes.JSON(style),
		UserID:   ownerID,
		IsPublic: true,
	}).Error
}

// purgeUser 删除用户及其名下的草稿、模板、资产登记与对象存储内容。
// 该路径读取完整环境配置，因为需要对象存储凭证。
func purgeUser(userID uint) error {
	cfg := config.MustLoad()

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}

	var user database.User
	if err := db.First(&user, userID).Error; err != nil {
		return fmt.Errorf("query user: %w", err)
	}

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		return fmt.Errorf("init storage client: %w", err)
	}

	ctx := context.Background()
	assetPrefix := storage.UserAssetPrefix(userID)

	objects, err := storageClient.ListObjects(ctx, assetPrefix, 1000)
	if err != nil {
		return fmt.Errorf("list user objects: %w", err)
	}
	fmt.Printf("将删除用户 %q（ID %d）：对象存储中共 %d 个资产对象\n", user.Username, userID, len(objects))

	for _, prefix := range []string{
		assetPrefix,
		fmt.Sprintf("rendered-emails/%d/", userID),
	} {
		if err := storageClient.DeletePrefix(ctx, prefix); err != nil {
			return fmt.Errorf("delete objects under %q: %w", prefix, err)
		}
	}

	var drafts []database.Draft
	if err := db.Where("user_id = ?", userID).Find(&drafts).Error; err != nil {
		return fmt.Errorf("list drafts: %w", err)
	}
	for _, d := range drafts {
		if err := storageClient.DeletePrefix(ctx, fmt.Sprintf("thumbnails/draft/%d/", d.ID)); err != nil {
			return fmt.Errorf("delete draft thumbnails: %w", err)
		}
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&database.Asset{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&database.Template{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&database.Draft{}).Error; err != nil {
			return err
		}
		return tx.Delete(&database.User{}, userID).Error
	})
}

func loadDatabaseConfig(host string, port int, name, user, password, sslmode string) (config.DatabaseConfig, error) {
	if strings.TrimSpace(host) == "" {
		host = os.Getenv("DATABASE_HOST")
	}
	if port <= 0 {
		if env := strings.TrimSpace(os.Getenv("DATABASE_PORT")); env != "" {
			p, err := strconv.Atoi(env)
			if err != nil {
				return config.DatabaseConfig{}, fmt.Errorf("parse DATABASE_PORT: %w", err)
			}
			port = p
		}
	}
	if strings.TrimSpace(name) == "" {
		name = os.Getenv("POSTGRES_DB")
	}
	if strings.TrimSpace(name) == "" {
		name = os.Getenv("DB_NAME")
	}
	if strings.TrimSpace(user) == "" {
		user = os.Getenv("POSTGRES_USER")
	}
	if strings.TrimSpace(user) == "" {
		user = os.Getenv("DB_USER")
	}
	if strings.TrimSpace(password) == "" {
		password = os.Getenv("POSTGRES_PASSWORD")
	}
	if strings.TrimSpace(password) == "" {
		password = os.Getenv("DB_PASSWORD")
	}
	if strings.TrimSpace(sslmode) == "" {
		sslmode = os.Getenv("DATABASE_SSLMODE")
	}

	if strings.TrimSpace(host) == "" {
		host = "localhost"
	}
	if port <= 0 {
		port = 5432
	}
	if strings.TrimSpace(sslmode) == "" {
		sslmode = "disable"
	}
	if strings.TrimSpace(name) == "" {
		return config.DatabaseConfig{}, errors.New("database name is required (POSTGRES_DB)")
	}
	if strings.TrimSpace(user) == "" {
		return config.DatabaseConfig{}, errors.New("database user is required (POSTGRES_USER)")
	}
	if strings.TrimSpace(password) == "" {
		return config.DatabaseConfig{}, errors.New("database password is required (POSTGRES_PASSWORD)")
	}

	return config.DatabaseConfig{
		Host:     host,
		Port:     port,
		Name:     name,
		User:     user,
		Password: password,
		SSLMode:  sslmode,
	}, nil
}

func generateRandomPassword(bytesLen int) (string, error) {
	if bytesLen <= 0 {
		bytesLen = 24
	}
	buf := make([]byte, bytesLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
