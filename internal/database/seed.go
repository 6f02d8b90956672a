package database

import (
	"fmt"

	"gorm.io/gorm"
)

type topicSeed struct {
	name        string
	description string
}

var topicSeeds = []topicSeed{
	{"Fullstack", "Questions about developing applications involving both frontend and backend, using technologies like React, Angular, Vue.js, Node.js, Django, and more."},
	{"Backend", "Questions about server-side development, including databases, APIs, frameworks like Spring Boot, Express.js, and languages like Java, Python, and PHP."},
	{"Frontend", "Questions about user interface development, using technologies like HTML, CSS, JavaScript, React, Angular, and Vue.js."},
	{"DevOps", "Questions about continuous integration and deployment, infrastructure management, tools like Docker, Kubernetes, Jenkins, and DevOps practices."},
	{"Data Science", "Questions about data analysis, statistics, data visualization, using tools like Python, R, and data analysis platforms."},
	{"Mobile", "Questions about mobile application development, using technologies like Android, iOS, Flutter, and React Native."},
	{"Machine Learning", "Questions about machine learning algorithms, data modeling, using frameworks like TensorFlow, PyTorch, and Scikit-learn."},
	{"Algorithms", "Questions about algorithm design and analysis, data structures, and competitive programming problems."},
	{"System Design", "Questions about designing scalable systems, software architecture, distributed databases, and microservices design."},
	{"Testing", "Questions about software testing, types of testing (unit, integration, acceptance), testing tools, and testing strategies."},
	{"Cyber Security", "Questions about computer security, data protection, attack prevention, security tools, and security policies."},
	{"Cloud Computing", "Questions about cloud computing, AWS, Azure, Google Cloud services, and cloud deployment practices."},
	{"Blockchain", "Questions about blockchain technology, cryptocurrencies, smart contracts, and decentralized applications."},
	{"IoT", "Questions about Internet of Things, connected devices, device communication, and IoT platforms."},
	{"AR/VR", "Questions about augmented and virtual reality, AR/VR application development, and technologies like Unity and Unreal Engine."},
	{"Quantum Computing", "Questions about quantum computing, quantum algorithms, and quantum computing applications."},
	{"Game Development", "Questions about video game development, game engines like Unity and Unreal Engine, game design, and game programming."},
}

var languageSeeds = []string{
	"Java", "Python", "JavaScript", "Ruby", "C#", "PHP",
	"Go", "Rust", "Swift", "Kotlin", "TypeScript", "Scala",
}

type difficultySeed struct {
	level       string
	description string
}

var difficultySeeds = []difficultySeed{
	{"Junior", "Basic and fundamental questions for beginner developers. Ideal for those starting in the field and needing to build a solid foundation."},
	{"Mid-Level", "Intermediate questions requiring deeper knowledge of concepts and tools. Ideal for developers with experience in practical projects."},
	{"Senior", "Advanced and complex questions for field experts. Ideal for those with years of experience seeking more challenging technical problems."},
}

// SeedLookupData 以幂等方式写入主题、语言与难度基础数据。
// 已存在的记录保持不变，可在每次启动时安全调用。
func SeedLookupData(db *gorm.DB) error {
	for _, seed := range topicSeeds {
		topic := Topic{Name: seed.name, Description: seed.description}
		if err := db.Where(Topic{Name: seed.name}).FirstOrCreate(&topic).Error; err != nil {
			return fmt.Errorf("seed topic %q: %w", seed.name, err)
		}
	}

	for _, name := range languageSeeds {
		language := Language{Name: name}
		if err := db.Where(Language{Name: name}).FirstOrCreate(&language).Error; err != nil {
			return fmt.Errorf("seed language %q: %w", name, err)
		}
	}

	for _, seed := range difficultySeeds {
		difficulty := Difficulty{Level: seed.level, Description: seed.description}
		if err := db.Where(Difficulty{Level: seed.level}).FirstOrCreate(&difficulty).Error; err != nil {
			return fmt.Errorf("seed difficulty %q: %w", seed.level, err)
		}
	}

	return nil
}
