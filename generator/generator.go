package generator

import (
	"bytes"
	"encoding/binary"
	"net"

	"github.com/bwmarrin/snowflake"
)

/*
输入一个IPv4地址字符串，输出对应的32位整数

非IPv4地址返回0
*/
func IDbyIP(ip string) uint32 {
	var id uint32
	v4 := net.ParseIP(ip).To4()
	if v4 == nil {
		return 0
	}
	binary.Read(bytes.NewBuffer(v4), binary.BigEndian, &id)
	return id
}

// 第一个非回环的IPv4地址，找不到时返回127.0.0.1
func LocalIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "127.0.0.1"
	}
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if v4 := ipnet.IP.To4(); v4 != nil {
				return v4.String()
			}
		}
	}
	return "127.0.0.1"
}

/*
输入一个IP地址，输出snowflake节点

节点号取IDbyIP的低10位，同一网段内不同机器生成的运行ID互不冲突
*/
func NewNode(ip string) (*snowflake.Node, error) {
	return snowflake.NewNode(int64(IDbyIP(ip) % 1024))
}
