package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User 表示系统中的账号信息。
// email 与 username 全局唯一；密码只保存 bcrypt 哈希。
type User struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name          string    `gorm:"size:255"`
	Email         string    `gorm:"uniqueIndex;size:255;not null"`
	Username      string    `gorm:"uniqueIndex;size:100;not null"`
	PasswordHash  string    `gorm:"size:255;not null"`
	Role          string    `gorm:"size:16;not null;default:USER"`
	EmailVerified *time.Time
	CreatedAt     time.Time
}

// BeforeCreate 在插入前补齐 UUID 主键。
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// File 表示一条已上传文件的元数据，字节本体存放在对象存储。
// StoredKey 由服务端派生，永不接受用户输入。
type File struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerID          uuid.UUID `gorm:"type:uuid;index;not null"`
	Owner            User      `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
	OriginalFilename string    `gorm:"size:255;not null"`
	StoredKey        string    `gorm:"uniqueIndex;size:512;not null"`
	ContentType      string    `gorm:"size:255;not null"`
	Size             int64     `gorm:"not null"`
	Bucket           string    `gorm:"size:63;not null"`
	Category         string    `gorm:"size:32;index;not null"`
	UploadedAt       time.Time `gorm:"autoCreateTime"`
}

// BeforeCreate 在插入前补齐 UUID 主键。
func (f *File) BeforeCreate(_ *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// Topic 表示面试主题（Backend、DevOps 等）。
type Topic struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"uniqueIndex;size:100;not null"`
	Description string    `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (t *Topic) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Language 表示面试使用的编程语言。
type Language struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"uniqueIndex;size:100;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (l *Language) BeforeCreate(_ *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Difficulty 表示面试难度档位。
type Difficulty struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Level       string    `gorm:"uniqueIndex;size:32;not null"`
	Description string    `gorm:"type:text"`
}

func (d *Difficulty) BeforeCreate(_ *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// Interview 表示一次面试练习记录。
type Interview struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID          uuid.UUID  `gorm:"type:uuid;index;not null"`
	User            User       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	TopicID         *uuid.UUID `gorm:"type:uuid"`
	LanguageID      *uuid.UUID `gorm:"type:uuid"`
	DifficultyID    *uuid.UUID `gorm:"type:uuid"`
	JobDescription  string     `gorm:"type:text"`
	ExperienceYears int
	StartTime       time.Time
	EndTime         *time.Time
	Status          string         `gorm:"size:50;not null;default:in_progress"`
	Feedback        datatypes.JSON `gorm:"type:jsonb"` // 结构化面试反馈，由后续评估流程填充
}

func (i *Interview) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// VerificationToken 记录待确认的邮箱验证令牌。
// 复合主键 (identifier, token)，identifier 即邮箱地址。
type VerificationToken struct {
	Identifier string    `gorm:"primaryKey;size:255"`
	Token      string    `gorm:"primaryKey;size:255"`
	Expires    time.Time `gorm:"not null"`
}
