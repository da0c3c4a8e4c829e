package snowflake

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

// NewNode 创建雪花算法节点，machineID 取值 0-1023，多节点部署需唯一
func NewNode(machineID int64) (*snowflake.Node, error) {
	if machineID < 0 || machineID > 1023 {
		return nil, fmt.Errorf("snowflake machine id %d out of range [0,1023]", machineID)
	}
	node, err := snowflake.NewNode(machineID)
	if err != nil {
		return nil, err
	}
	zap.L().Info("snowflake node initialized", zap.Int64("machineID", machineID))
	return node, nil
}
