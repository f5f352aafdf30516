// 版权所有 2025 SnowFlow Authors. 版权所有。

// Package cache 基于 Redis 缓存注解、预检与目录探测结果。
//
// 注解和预检按图内容的 SHA-256 摘要寻址：同一张画布图的重复校验
// 直接命中缓存，不再跑一遍图算法和目录探测。探测结果按完全限定
// 对象名寻址，跨图共享。
//
// 缓存不可用时服务降级为直连运行，见 cmd/snowflow 的启动逻辑。
package cache
