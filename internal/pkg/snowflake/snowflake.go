package snowflake

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/go-kratos/kratos/v2/log"
)

// nodeIDEnv 多实例部署时为每个实例指定不同的节点 ID
const nodeIDEnv = "FACTFIT_NODE_ID"

const maxNodeID = 1023

// Generator 订单号生成器，输出大写 base36 的雪花 ID
type Generator struct {
	node   *snowflake.Node
	nodeID int64
	log    *log.Helper
}

// NewGenerator 创建订单号生成器，节点 ID 默认为 1
func NewGenerator(logger log.Logger) (*Generator, error) {
	nodeID := int64(1)
	if env := os.Getenv(nodeIDEnv); env != "" {
		parsed, err := strconv.ParseInt(env, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", nodeIDEnv, env, err)
		}
		nodeID = parsed
	}
	return NewGeneratorWithNode(nodeID, logger)
}

// NewGeneratorWithNode 使用指定节点 ID 创建生成器
func NewGeneratorWithNode(nodeID int64, logger log.Logger) (*Generator, error) {
	if nodeID < 0 || nodeID > maxNodeID {
		return nil, fmt.Errorf("node ID must be between 0 and %d, got: %d", maxNodeID, nodeID)
	}

	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %w", err)
	}

	helper := log.NewHelper(logger)
	helper.Infof("Reference code generator initialized with node ID: %d", nodeID)

	return &Generator{node: node, nodeID: nodeID, log: helper}, nil
}

// GenerateID 生成雪花ID
func (g *Generator) GenerateID() int64 {
	return g.node.Generate().Int64()
}

// GenerateIDString 生成订单号主体，例如 1T4ZQ3R2M5KG
func (g *Generator) GenerateIDString() string {
	code := strings.ToUpper(g.node.Generate().Base36())
	g.log.Debugf("Generated reference code: %s", code)
	return code
}

// ParseRefCode 解析订单号主体，返回生成时间与节点 ID
func ParseRefCode(code string) (time.Time, int64, error) {
	id, err := snowflake.ParseBase36(strings.ToLower(code))
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("invalid reference code %q: %w", code, err)
	}
	return time.UnixMilli(id.Time()), id.Node(), nil
}
